package fs

import (
	"path/filepath"
	"strings"
)

// pattern is a parsed glob with its matching strategy.
type pattern struct {
	glob      string
	matchPath bool // true = match against relative path; false = match against basename only
}

// Matcher checks file paths against a set of glob patterns.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path from the walk root.
type Matcher struct {
	patterns []pattern
}

// NewMatcher creates a Matcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewMatcher(rawPatterns []string) *Matcher {
	var patterns []pattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, pattern{
			glob:      raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &Matcher{patterns: patterns}
}

// Match reports whether the given relative path matches any pattern.
// relativePath should use filepath separators and be relative to the walk root.
func (m *Matcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		var matched bool
		var err error
		if p.matchPath {
			matched, err = filepath.Match(p.glob, normalized)
		} else {
			matched, err = filepath.Match(p.glob, basename)
		}
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// MatchFiles walks root recursively and returns the files whose path
// relative to root matches m.
func (m *Matcher) MatchFiles(root string) ([]string, error) {
	files, err := FindFiles(root, true)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			continue
		}
		if m.Match(rel) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}
