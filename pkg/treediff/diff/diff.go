// Package diff computes the one-way difference between two directory trees:
// the relative paths present under a source root and absent under a target
// root.
//
// Example:
//
//	engine := diff.New(diff.Options{Workers: 8})
//	res, err := engine.Diff(ctx, "/data/current", "/backup/current")
//	if err != nil {
//	    return err
//	}
//	for _, p := range res.Paths.Paths() {
//	    fmt.Println(p)
//	}
package diff

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/treediff/pkg/treediff/filter"
	"github.com/jamesainslie/treediff/pkg/treediff/index"
	"github.com/jamesainslie/treediff/pkg/treediff/logging"
	"github.com/jamesainslie/treediff/pkg/treediff/tuner"
	"github.com/jamesainslie/treediff/pkg/treediff/walker"
)

// Options configures an Engine. Zero values select tuned defaults.
type Options struct {
	// Workers is the size of the membership worker pool and the P in
	// chunk_size = |source| / P.
	Workers int

	// WalkWorkers is the number of fastwalk workers used per tree.
	WalkWorkers int

	// ChunkSize forces the chunk size. Zero derives it from Workers.
	ChunkSize int

	// Exclude is applied to both trees while they are indexed.
	Exclude *filter.Matcher
}

// Stats describes a finished diff.
type Stats struct {
	SourceEntries  int
	TargetEntries  int
	SourceSkipped  int64
	TargetSkipped  int64
	SourceExcluded int64
	TargetExcluded int64
	Missing        int

	ChunkSize int
	Chunks    int
	Workers   int

	WalkDuration time.Duration
	DiffDuration time.Duration
}

// Result is the outcome of Engine.Diff.
type Result struct {
	// Source and Target are the resolved roots.
	Source string
	Target string

	// Paths holds exactly the source paths absent from the target.
	Paths *index.Index

	Stats Stats
}

// Engine computes tree differences. It is safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates an Engine, filling unset worker counts from the tuner.
func New(opts Options) *Engine {
	tuned := tuner.CalculateWithOverrides(tuner.Detect(), opts.WalkWorkers, opts.Workers)
	opts.Workers = tuned.DiffWorkers
	opts.WalkWorkers = tuned.WalkWorkers
	return &Engine{opts: opts}
}

// Options returns the effective options after tuning.
func (e *Engine) Options() Options {
	return e.opts
}

// Indexes returns the paths of source that are not in target, along with the
// plan used to compute them. Both indexes are only read.
func (e *Engine) Indexes(source, target *index.Index) (*index.Index, Plan, error) {
	return difference(source, target, e.opts.Workers, e.opts.ChunkSize)
}

// Diff walks sourceRoot and targetRoot concurrently and returns the source
// paths missing from the target. A root that cannot be opened fails the diff
// with a *walker.RootError; a missing target is never treated as empty.
func (e *Engine) Diff(ctx context.Context, sourceRoot, targetRoot string) (*Result, error) {
	logger := logging.Get("diff")
	logger.Info("diff started",
		"source", sourceRoot,
		"target", targetRoot,
		"workers", e.opts.Workers,
		"walk_workers", e.opts.WalkWorkers)

	w := walker.New(walker.Options{
		Workers: e.opts.WalkWorkers,
		Exclude: e.opts.Exclude,
	})

	walkStart := time.Now()
	var src, tgt *walker.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src, err = w.Walk(gctx, sourceRoot)
		return err
	})
	g.Go(func() error {
		var err error
		tgt, err = w.Walk(gctx, targetRoot)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("walk failed", "error", err)
		return nil, err
	}
	walkElapsed := time.Since(walkStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diffStart := time.Now()
	missing, plan, err := e.Indexes(src.Index, tgt.Index)
	if err != nil {
		logger.Error("membership phase failed", "error", err)
		return nil, err
	}
	diffElapsed := time.Since(diffStart)

	logger.Debug("chunk plan",
		"chunk_size", plan.ChunkSize,
		"chunks", plan.Chunks,
		"workers", plan.Workers)

	res := &Result{
		Source: src.Root,
		Target: tgt.Root,
		Paths:  missing,
		Stats: Stats{
			SourceEntries:  src.Index.Len(),
			TargetEntries:  tgt.Index.Len(),
			SourceSkipped:  src.Skipped,
			TargetSkipped:  tgt.Skipped,
			SourceExcluded: src.Excluded,
			TargetExcluded: tgt.Excluded,
			Missing:        missing.Len(),
			ChunkSize:      plan.ChunkSize,
			Chunks:         plan.Chunks,
			Workers:        plan.Workers,
			WalkDuration:   walkElapsed,
			DiffDuration:   diffElapsed,
		},
	}

	logger.Info("diff finished",
		"missing", res.Stats.Missing,
		"source_entries", res.Stats.SourceEntries,
		"target_entries", res.Stats.TargetEntries,
		"walk", walkElapsed,
		"diff", diffElapsed)

	return res, nil
}
