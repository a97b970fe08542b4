package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Paths []string      `json:"paths" yaml:"paths"`
	Stats documentStats `json:"stats" yaml:"stats"`
	Meta  documentMeta  `json:"meta" yaml:"meta"`
}

type documentStats struct {
	SourceEntries int    `json:"source_entries" yaml:"source_entries"`
	TargetEntries int    `json:"target_entries" yaml:"target_entries"`
	Missing       int    `json:"missing" yaml:"missing"`
	Skipped       int64  `json:"skipped" yaml:"skipped"`
	Excluded      int64  `json:"excluded" yaml:"excluded"`
	Workers       int    `json:"workers" yaml:"workers"`
	Chunks        int    `json:"chunks" yaml:"chunks"`
	ChunkSize     int    `json:"chunk_size" yaml:"chunk_size"`
	WalkDuration  string `json:"walk_duration,omitempty" yaml:"walk_duration,omitempty"`
	DiffDuration  string `json:"diff_duration,omitempty" yaml:"diff_duration,omitempty"`
}

type documentMeta struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

func buildDocument(r *Result) document {
	paths := r.Paths
	if paths == nil {
		paths = []string{}
	}
	return document{
		Paths: paths,
		Stats: documentStats{
			SourceEntries: r.Stats.SourceEntries,
			TargetEntries: r.Stats.TargetEntries,
			Missing:       len(r.Paths),
			Skipped:       r.Stats.Skipped,
			Excluded:      r.Stats.Excluded,
			Workers:       r.Stats.Workers,
			Chunks:        r.Stats.Chunks,
			ChunkSize:     r.Stats.ChunkSize,
			WalkDuration:  formatDurationString(r.Stats.WalkDuration),
			DiffDuration:  formatDurationString(r.Stats.DiffDuration),
		},
		Meta: documentMeta{
			Source: r.Source,
			Target: r.Target,
		},
	}
}

// formatDurationString formats a duration for machine-readable output.
// Zero durations are omitted.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// JSONFormatter writes a single indented JSON document with paths, stats and
// meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// jsonlPath is one line of jsonl output.
type jsonlPath struct {
	Path string `json:"path"`
}

// JSONLFormatter writes one compact {"path": ...} object per line, for
// streaming into jq and similar tools.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, p := range r.Paths {
		data, err := json.Marshal(jsonlPath{Path: p})
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Formatter = (*JSONLFormatter)(nil)
