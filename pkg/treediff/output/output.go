// Package output provides formatters for treediff results in several output
// formats (paths, null, json, jsonl, yaml, template, pretty).
//
// Formatters are looked up by name from a registry:
//
//	formatter, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromDiff(res)); err != nil {
//	    return err
//	}
//	os.Stdout.Write(buf.Bytes())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/treediff/pkg/treediff/diff"
)

// DefaultFormat is the formatter used when none is configured.
const DefaultFormat = "paths"

// Stats contains statistics about a diff.
type Stats struct {
	// SourceEntries is the number of paths indexed under the source root.
	SourceEntries int `json:"source_entries" yaml:"source_entries"`

	// TargetEntries is the number of paths indexed under the target root.
	TargetEntries int `json:"target_entries" yaml:"target_entries"`

	// Missing is the number of source paths absent from the target.
	Missing int `json:"missing" yaml:"missing"`

	// Skipped is the number of unreadable entries left out of either index.
	Skipped int64 `json:"skipped" yaml:"skipped"`

	// Excluded is the number of entries dropped by exclusion patterns.
	Excluded int64 `json:"excluded" yaml:"excluded"`

	Workers   int `json:"workers" yaml:"workers"`
	Chunks    int `json:"chunks" yaml:"chunks"`
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	WalkDuration time.Duration `json:"walk_duration" yaml:"walk_duration"`
	DiffDuration time.Duration `json:"diff_duration" yaml:"diff_duration"`
}

// Duration returns the total time spent walking and comparing.
func (s Stats) Duration() time.Duration {
	return s.WalkDuration + s.DiffDuration
}

// Result contains the data handed to a formatter.
type Result struct {
	// Paths holds the source paths missing from the target, sorted ascending,
	// exactly as stored in the index.
	Paths []string `json:"paths" yaml:"paths"`

	// Source and Target are the compared roots.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	Stats Stats `json:"stats" yaml:"stats"`
}

// FromDiff converts an engine result into a formatter Result.
func FromDiff(res *diff.Result) *Result {
	return &Result{
		Paths:  res.Paths.Paths(),
		Source: res.Source,
		Target: res.Target,
		Stats: Stats{
			SourceEntries: res.Stats.SourceEntries,
			TargetEntries: res.Stats.TargetEntries,
			Missing:       res.Stats.Missing,
			Skipped:       res.Stats.SourceSkipped + res.Stats.TargetSkipped,
			Excluded:      res.Stats.SourceExcluded + res.Stats.TargetExcluded,
			Workers:       res.Stats.Workers,
			Chunks:        res.Stats.Chunks,
			ChunkSize:     res.Stats.ChunkSize,
			WalkDuration:  res.Stats.WalkDuration,
			DiffDuration:  res.Stats.DiffDuration,
		},
	}
}

// Formatter is the interface that all output formatters implement.
type Formatter interface {
	// Format writes the formatted result to w.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any existing one with the
// same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
