package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a human-readable size string into bytes.
// Supports bare numbers plus K/M/G/T suffixes, optionally written as
// KB/MB/... or KiB/MiB/... (case-insensitive). Uses powers of 1024
// for every suffix form.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(s)
	numStr := s
	multiplier := int64(1)

	// Strip an optional B / iB tail first so "1GiB" and "1GB" reduce to "1G".
	switch {
	case strings.HasSuffix(upper, "IB"):
		upper = upper[:len(upper)-2]
		numStr = numStr[:len(numStr)-2]
	case strings.HasSuffix(upper, "B"):
		upper = upper[:len(upper)-1]
		numStr = numStr[:len(numStr)-1]
	}

	if upper != "" {
		switch upper[len(upper)-1] {
		case 'K':
			multiplier = 1 << 10
			numStr = numStr[:len(numStr)-1]
		case 'M':
			multiplier = 1 << 20
			numStr = numStr[:len(numStr)-1]
		case 'G':
			multiplier = 1 << 30
			numStr = numStr[:len(numStr)-1]
		case 'T':
			multiplier = 1 << 40
			numStr = numStr[:len(numStr)-1]
		}
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	// Try integer first, then float.
	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		return n * multiplier, nil
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	return int64(f * float64(multiplier)), nil
}
