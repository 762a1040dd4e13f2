// Package match filters storage paths with doublestar glob patterns.
//
// A Matcher carries include and exclude patterns: a path is selected
// when it matches at least one include and no exclude. Static pattern
// prefixes are derived so listings can be narrowed at the backend
// instead of filtered client-side.
package match

import (
	"errors"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Errors returned by Matcher construction.
var (
	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with the offending pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a path must match (at least one).
	// Empty means match everything.
	Includes []string

	// Excludes are glob patterns a path must not match (any).
	Excludes []string

	// IncludeHidden matches paths with segments starting with '.'.
	// Default false: hidden entries are skipped.
	IncludeHidden bool
}

// Matcher evaluates include/exclude patterns against storage paths.
// Safe for concurrent use after construction.
type Matcher struct {
	includes      []string
	excludes      []string
	prefixes      []string
	includeHidden bool
}

// New compiles the configured patterns.
func New(cfg Config) (*Matcher, error) {
	includes := cfg.Includes
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	for _, p := range append(append([]string{}, includes...), cfg.Excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
	}
	return &Matcher{
		includes:      includes,
		excludes:      append([]string{}, cfg.Excludes...),
		prefixes:      DerivePrefixes(includes),
		includeHidden: cfg.IncludeHidden,
	}, nil
}

// Match reports whether the path is selected. Paths are matched as-is;
// storage keys are opaque strings where any character is valid.
func (m *Matcher) Match(path string) bool {
	if !m.includeHidden && IsHidden(path) {
		return false
	}

	matched := false
	for _, inc := range m.includes {
		if matchPattern(inc, path) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, exc := range m.excludes {
		if matchPattern(exc, path) {
			return false
		}
	}
	return true
}

// Prefixes returns the deduplicated static prefixes of the include
// patterns. An empty string means at least one pattern needs a full
// listing.
func (m *Matcher) Prefixes() []string {
	return m.prefixes
}

// IsHidden reports whether any path segment starts with a dot.
func IsHidden(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	// Patterns are validated at construction; Match only errors on bad
	// patterns, so a false here is safe.
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}

// DerivePrefix extracts the longest static prefix of a glob pattern,
// truncated to the last complete path segment.
//
//	"data/2024/**/*.parquet" -> "data/2024/"
//	"*.json"                 -> ""
//	"exact/path/file.txt"    -> "exact/path/file.txt"
func DerivePrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx == -1 {
		return pattern
	}
	if idx == 0 {
		return ""
	}
	prefix := pattern[:idx]
	if slash := strings.LastIndex(prefix, "/"); slash >= 0 {
		return prefix[:slash+1]
	}
	return ""
}

// DerivePrefixes derives, deduplicates and minimizes prefixes from a
// pattern list: a prefix covered by a shorter one is dropped, and any
// empty prefix collapses the result to a single full listing.
func DerivePrefixes(patterns []string) []string {
	seen := map[string]struct{}{}
	var prefixes []string
	for _, p := range patterns {
		pfx := DerivePrefix(p)
		if pfx == "" {
			return []string{""}
		}
		if _, dup := seen[pfx]; !dup {
			seen[pfx] = struct{}{}
			prefixes = append(prefixes, pfx)
		}
	}
	sort.Strings(prefixes)

	var minimal []string
	for _, pfx := range prefixes {
		covered := false
		for _, kept := range minimal {
			if strings.HasPrefix(pfx, kept) {
				covered = true
				break
			}
		}
		if !covered {
			minimal = append(minimal, pfx)
		}
	}
	return minimal
}
