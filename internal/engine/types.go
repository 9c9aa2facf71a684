package engine

import (
	"fmt"
	"time"
)

// FileRecord describes one candidate file discovered by the scanner.
// Records are rebuilt on every scan; only their outcome is persisted.
type FileRecord struct {
	Path      string // absolute
	Size      int64
	ModTime   time.Time
	IsSymlink bool
}

// SortKey selects the ordering applied before skip-last-N and truncation.
type SortKey string

const (
	// SortByModTime orders oldest-modified first, ties broken by path.
	SortByModTime SortKey = "mtime"
	// SortByName orders by base name, lexicographic ascending.
	SortByName SortKey = "name"
)

// ParseSortKey validates a sort key string.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByModTime, SortByName:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("invalid sort key %q (want %q or %q)", s, SortByModTime, SortByName)
}
