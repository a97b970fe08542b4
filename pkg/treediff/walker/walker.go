// Package walker builds a path index from a directory tree. Traversal is
// parallel (fastwalk) while the resulting index is deterministic: it is a set
// of root-relative paths, so listing order does not affect its contents.
package walker

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/treediff/pkg/treediff/filter"
	"github.com/jamesainslie/treediff/pkg/treediff/index"
	"github.com/jamesainslie/treediff/pkg/treediff/logging"
)

// Options configures a Walker.
type Options struct {
	// Workers is the number of fastwalk workers. Zero or less lets fastwalk
	// pick its default.
	Workers int

	// Exclude is an optional pre-filter. Matching entries are not indexed and
	// matching directories are not descended into.
	Exclude *filter.Matcher
}

// Result is a finished walk.
type Result struct {
	// Root is the resolved absolute root that was walked.
	Root string

	// Index holds every entry under Root, relative to it. It is read-only.
	Index *index.Index

	Dirs     int64
	Files    int64
	Symlinks int64
	Other    int64

	// Skipped counts entries dropped because they could not be read.
	Skipped int64

	// Excluded counts entries dropped by the exclusion filter.
	Excluded int64

	Elapsed time.Duration
}

// Walker walks directory trees into indexes. A Walker holds no per-walk
// state and may run several walks concurrently.
type Walker struct {
	opts Options
}

// New creates a Walker.
func New(opts Options) *Walker {
	return &Walker{opts: opts}
}

// walk holds the state of a single Walk call.
type walk struct {
	root    string
	exclude *filter.Matcher
	log     *logging.Logger

	mu  sync.Mutex
	idx *index.Index

	dirs, files, symlinks, other atomic.Int64
	skipped, excluded            atomic.Int64
}

// Walk indexes every file, directory and other entry under root. The root
// itself is not indexed.
//
// Failing to open root returns a *RootError. Failures on individual entries
// below the root are not errors: the entry is left out and the walk goes on.
func (w *Walker) Walk(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	logger := logging.Get("walker")

	abs, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	logger.Info("indexing started", "root", abs)

	st := &walk{
		root:    abs,
		exclude: w.opts.Exclude,
		log:     logger,
		idx:     index.New(),
	}

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, abs, st.visit(ctx))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, walkErr
	}

	res := &Result{
		Root:     abs,
		Index:    st.idx,
		Dirs:     st.dirs.Load(),
		Files:    st.files.Load(),
		Symlinks: st.symlinks.Load(),
		Other:    st.other.Load(),
		Skipped:  st.skipped.Load(),
		Excluded: st.excluded.Load(),
		Elapsed:  time.Since(start),
	}

	logger.Info("indexing finished",
		"root", abs,
		"entries", res.Index.Len(),
		"skipped", res.Skipped,
		"excluded", res.Excluded,
		"elapsed", res.Elapsed)

	return res, nil
}

// visit returns the fastwalk callback. fastwalk invokes it from several
// goroutines at once.
func (st *walk) visit(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// The root was validated up front; anything failing here is a
			// single entry or the listing of a subdirectory.
			st.skipped.Add(1)
			st.log.Debug("skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		rel := st.relative(path)
		if rel == "" {
			return nil
		}

		if st.exclude.Excluded(rel) {
			st.excluded.Add(1)
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			st.dirs.Add(1)
		case d.Type().IsRegular():
			st.files.Add(1)
		case d.Type()&fs.ModeSymlink != 0:
			st.symlinks.Add(1)
		default:
			st.other.Add(1)
		}

		st.mu.Lock()
		st.idx.Add(rel)
		st.mu.Unlock()

		return nil
	}
}

// relative strips the walk root from path.
func (st *walk) relative(path string) string {
	if path == st.root {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, st.root); ok && strings.HasPrefix(rest, string(filepath.Separator)) {
		return index.Normalize(rest)
	}
	if strings.HasSuffix(st.root, string(filepath.Separator)) {
		if rest, ok := strings.CutPrefix(path, st.root); ok {
			return index.Normalize(rest)
		}
	}
	rel, err := index.Relative(st.root, path)
	if err != nil {
		return ""
	}
	return rel
}

// validateRoot resolves root to an absolute, symlink-free directory that the
// process can list.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", rootError(root, ErrRootNotReadable, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", rootError(root, ErrRootNotFound, err)
		}
		return "", rootError(root, ErrRootNotReadable, err)
	}
	if !info.IsDir() {
		return "", rootError(root, ErrRootNotDirectory, nil)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", rootError(root, ErrRootNotReadable, err)
	}

	if err := checkAccess(resolved); err != nil {
		return "", rootError(root, ErrRootNotReadable, err)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", rootError(root, ErrRootNotReadable, err)
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", rootError(root, ErrRootNotReadable, err)
	}

	return resolved, nil
}
