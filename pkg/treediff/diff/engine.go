package diff

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/treediff/pkg/treediff/index"
)

// ErrEngineInvariant indicates the chunk partition did not cover the source
// index exactly. It signals a defect in the engine, not bad input.
var ErrEngineInvariant = errors.New("diff engine invariant violated")

// Plan describes how a source index was split for the membership phase.
type Plan struct {
	// ChunkSize is the maximum number of paths per chunk.
	ChunkSize int

	// Chunks is the number of chunks produced.
	Chunks int

	// Workers is the number of goroutines that consumed the chunks.
	Workers int
}

// ChunkSize returns max(1, total/workers). A worker count below 1 is treated
// as 1.
func ChunkSize(total, workers int) int {
	workers = max(workers, 1)
	return max(1, total/workers)
}

// partition splits paths into contiguous chunks of at most size entries.
// The chunks share the backing array of paths.
func partition(paths []string, size int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	size = max(size, 1)

	chunks := make([][]string, 0, (len(paths)+size-1)/size)
	for start := 0; start < len(paths); start += size {
		end := min(start+size, len(paths))
		chunks = append(chunks, paths[start:end:end])
	}
	return chunks
}

// difference returns the paths of source that are not in target.
//
// The sorted source paths are split into chunks of chunkSize (or
// ChunkSize(|source|, workers) when chunkSize is 0) and tested against target
// on a fixed pool of min(workers, chunks) goroutines. Each worker appends its
// chunk's misses to a shared slice under a mutex, once per chunk. The result
// is identical for every worker count and chunk size.
//
// source and target are only read. Either may be nil, which is treated as
// empty.
func difference(source, target *index.Index, workers, chunkSize int) (*index.Index, Plan, error) {
	workers = max(workers, 1)
	paths := source.Paths()

	if chunkSize <= 0 {
		chunkSize = ChunkSize(len(paths), workers)
	}
	chunks := partition(paths, chunkSize)

	covered := 0
	for _, c := range chunks {
		covered += len(c)
	}
	if covered != len(paths) {
		return nil, Plan{}, fmt.Errorf("%w: chunks cover %d of %d source paths",
			ErrEngineInvariant, covered, len(paths))
	}

	plan := Plan{
		ChunkSize: chunkSize,
		Chunks:    len(chunks),
		Workers:   min(workers, len(chunks)),
	}

	if len(chunks) == 0 {
		return index.New(), plan, nil
	}

	var (
		mu     sync.Mutex
		merged []string
		wg     sync.WaitGroup
	)

	work := make(chan []string)
	for i := 0; i < plan.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range work {
				missing := missingFrom(chunk, target)
				if len(missing) == 0 {
					continue
				}
				mu.Lock()
				merged = append(merged, missing...)
				mu.Unlock()
			}
		}()
	}

	for _, c := range chunks {
		work <- c
	}
	close(work)
	wg.Wait()

	result := index.NewWithCapacity(len(merged))
	for _, p := range merged {
		result.Add(p)
	}
	return result, plan, nil
}

// missingFrom returns the paths in chunk that target does not contain.
func missingFrom(chunk []string, target *index.Index) []string {
	var out []string
	for _, p := range chunk {
		if target == nil || !target.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
