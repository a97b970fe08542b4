// Package filter provides the exclusion patterns applied to paths before they
// are inserted into an index. Patterns use glob syntax with "/" as the
// separator, so "*" never crosses a directory boundary while "**" does.
package filter

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates that an exclusion pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// pattern is a single compiled exclusion rule.
type pattern struct {
	raw    string
	prefix string
	glob   glob.Glob
}

// Matcher decides whether a relative path is excluded.
// A nil *Matcher excludes nothing. A Matcher is immutable after New and safe
// for concurrent use.
type Matcher struct {
	patterns []pattern
}

// New compiles the given patterns. Empty patterns are ignored.
// It returns nil and no error if no usable patterns remain.
func New(patterns ...string) (*Matcher, error) {
	compiled := make([]pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		prefix := strings.Trim(path.Clean(strings.ReplaceAll(raw, "\\", "/")), "/")
		g, err := glob.Compile(prefix, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, raw, err)
		}
		compiled = append(compiled, pattern{raw: raw, prefix: prefix, glob: g})
	}

	if len(compiled) == 0 {
		return nil, nil
	}
	return &Matcher{patterns: compiled}, nil
}

// Patterns returns the raw patterns the matcher was built from.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.raw
	}
	return out
}

// Excluded reports whether rel, a normalized relative path, matches any
// pattern. A path matches when it equals the pattern, lies beneath it, matches
// it as a glob, or its base name matches it as a glob.
func (m *Matcher) Excluded(rel string) bool {
	if m == nil || rel == "" {
		return false
	}

	base := path.Base(rel)
	for _, p := range m.patterns {
		if rel == p.prefix || strings.HasPrefix(rel, p.prefix+"/") {
			return true
		}
		if p.glob.Match(rel) || p.glob.Match(base) {
			return true
		}
	}
	return false
}
