package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Glob matches file base names using shell-style patterns. Supported
// syntax: `*`, `?`, `[...]` character classes, and `{a,b}` alternation
// (one level, no nesting).
type Glob struct {
	re       *regexp.Regexp
	original string
}

// CompileGlob converts a glob pattern into a compiled matcher. The pattern
// is matched against base names only; a pattern containing a path separator
// is rejected.
func CompileGlob(pattern string) (*Glob, error) {
	if strings.Contains(pattern, "/") {
		return nil, fmt.Errorf("glob %q: path separators are not supported, patterns match base names", pattern)
	}
	reStr, err := globToRegex(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	re, err := regexp.Compile("^" + reStr + "$")
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return &Glob{re: re, original: pattern}, nil
}

// Match tests whether a file base name matches this pattern.
func (g *Glob) Match(name string) bool {
	return g.re.MatchString(name)
}

// String returns the original pattern text.
func (g *Glob) String() string {
	return g.original
}

// globToRegex converts a glob pattern to a regex string.
func globToRegex(pattern string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			// Character class — pass through to regex.
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				return "", fmt.Errorf("unterminated character class")
			}
			cls := pattern[i+1 : j]
			if strings.HasPrefix(cls, "!") {
				cls = "^" + cls[1:]
			}
			b.WriteString("[" + cls + "]")
			i = j + 1
		case '{':
			j := strings.IndexByte(pattern[i:], '}')
			if j < 0 {
				return "", fmt.Errorf("unterminated brace group")
			}
			group := pattern[i+1 : i+j]
			if strings.Contains(group, "{") {
				return "", fmt.Errorf("nested brace groups are not supported")
			}
			alts := strings.Split(group, ",")
			for k, alt := range alts {
				sub, err := globToRegex(alt)
				if err != nil {
					return "", err
				}
				alts[k] = sub
			}
			b.WriteString("(" + strings.Join(alts, "|") + ")")
			i += j + 1
		case '}':
			return "", fmt.Errorf("unmatched closing brace")
		case '.', '(', ')', '+', '^', '$', '|', '\\':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
