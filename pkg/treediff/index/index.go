// Package index provides the in-memory path set that treediff builds from a
// directory walk and compares against a second walk.
//
// An Index has a single owner while it is being built. Once handed to a
// consumer it is treated as read-only, and any number of goroutines may call
// Contains, Len and Paths concurrently.
package index

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Index is a set of relative, slash-separated paths.
type Index struct {
	paths map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{paths: make(map[string]struct{})}
}

// NewWithCapacity returns an empty index sized for n entries.
func NewWithCapacity(n int) *Index {
	if n < 0 {
		n = 0
	}
	return &Index{paths: make(map[string]struct{}, n)}
}

// FromPaths builds an index from already-relative paths.
func FromPaths(paths ...string) *Index {
	idx := NewWithCapacity(len(paths))
	for _, p := range paths {
		idx.Add(p)
	}
	return idx
}

// Add inserts p after normalizing it. Adding an existing path or a path that
// normalizes to the empty string is a no-op. Add reports whether the index
// grew.
func (idx *Index) Add(p string) bool {
	p = Normalize(p)
	if p == "" {
		return false
	}
	if _, ok := idx.paths[p]; ok {
		return false
	}
	idx.paths[p] = struct{}{}
	return true
}

// Contains reports whether p is in the index. p is expected to be in the
// normalized form produced by Normalize.
func (idx *Index) Contains(p string) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.paths[p]
	return ok
}

// Len returns the number of paths in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.paths)
}

// Paths returns the indexed paths sorted ascending. The slice is a copy.
func (idx *Index) Paths() []string {
	if idx == nil {
		return []string{}
	}
	out := make([]string, 0, len(idx.paths))
	for p := range idx.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both indexes hold exactly the same paths. A nil
// index equals any empty index.
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	if idx == nil {
		return true
	}
	for p := range idx.paths {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Normalize converts p to the canonical index form: slash separated, cleaned,
// without a leading "./" or "/" and without a trailing separator. The walk
// root itself ("." or "") normalizes to "".
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Relative strips root from full and returns the normalized relative path.
// The root itself yields "".
func Relative(root, full string) (string, error) {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	return Normalize(rel), nil
}
