// Package watch reports settled changes under one or more directory trees.
// Bursts of filesystem events are coalesced so a caller re-running a diff
// does so once per batch of changes rather than once per event.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/treediff/pkg/treediff/logging"
)

// DefaultDebounce is the quiet period used when New is given zero.
const DefaultDebounce = 500 * time.Millisecond

// ErrNotDirectory is returned by Add for a root that is not a directory.
var ErrNotDirectory = errors.New("watch root is not a directory")

// Watcher watches directory trees recursively.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	paths  map[string]bool
	closed bool
}

// New creates a Watcher that waits for debounce of quiet before reporting a
// change.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		paths:    make(map[string]bool),
	}, nil
}

// Add watches root and every directory below it. A symlinked root is
// resolved first; symlinks below it are not followed. Directories that cannot
// be watched are skipped.
func (w *Watcher) Add(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return err
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	absRoot = resolved

	if err := w.addWatch(absRoot); err != nil {
		return err
	}
	w.addTree(absRoot)
	return nil
}

// addTree watches every directory strictly below dir.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are not watched
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() && path != dir {
			_ = w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watch").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Len returns the number of watched directories.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Run delivers events until ctx is done. onChange is called from Run's
// goroutine once the tree has been quiet for the debounce period after one
// or more events.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	logger := logging.Get("watch")

	// Reset and Stop discard undelivered ticks, so no draining is needed.
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			logger.Debug("event", "path", event.Name, "op", event.Op.String())
			w.handleEvent(event)

			timer.Reset(w.debounce)

		case <-timer.C:
			if onChange != nil {
				onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent keeps the watch list in step with the tree.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err != nil || info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
			return
		}
		_ = w.addWatch(event.Name)
		w.addTree(event.Name)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.forget(event.Name)
	}
}

// forget drops path and everything below it from the watch list.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close stops watching and releases resources. Close is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func isSubPath(path, parent string) bool {
	return strings.HasPrefix(path, parent+string(filepath.Separator))
}
