package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := New(debounce)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// runWatcher starts Run in the background and returns a change counter.
func runWatcher(t *testing.T, w *Watcher) *atomic.Int32 {
	t.Helper()
	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, func() { changes.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &changes
}

func TestNew_DefaultDebounce(t *testing.T) {
	w := newWatcher(t, 0)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestAdd_Recursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "c"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "f"), nil, 0o644))

	w := newWatcher(t, 0)
	require.NoError(t, w.Add(root))
	assert.Equal(t, 4, w.Len())

	require.NoError(t, w.Add(root))
	assert.Equal(t, 4, w.Len(), "adding the same tree twice must not duplicate watches")
}

func TestAdd_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	require.NoError(t, os.Symlink(other, filepath.Join(root, "link")))

	w := newWatcher(t, 0)
	require.NoError(t, w.Add(root))
	assert.Equal(t, 1, w.Len())
}

func TestAdd_MissingAndFile(t *testing.T) {
	w := newWatcher(t, 0)

	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.ErrorIs(t, w.Add(file), ErrNotDirectory)
	assert.Zero(t, w.Len())
}

func TestAdd_SymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))

	w := newWatcher(t, 50*time.Millisecond)
	require.NoError(t, w.Add(link))
	assert.Equal(t, 2, w.Len())

	changes := runWatcher(t, w)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "new"), nil, 0o644))
	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestAdd_SymlinkToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(file, link))

	w := newWatcher(t, 0)
	assert.ErrorIs(t, w.Add(link), ErrNotDirectory)
	assert.Zero(t, w.Len())
}

func TestRun_CoalescesBursts(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, 200*time.Millisecond)
	require.NoError(t, w.Add(root))
	changes := runWatcher(t, w)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "burst"), []byte{byte(i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), changes.Load())
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, 100*time.Millisecond)
	require.NoError(t, w.Add(root))
	changes := runWatcher(t, w)

	sub := filepath.Join(root, "new")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return w.Len() == 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	before := changes.Load()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner"), nil, 0o644))
	assert.Eventually(t, func() bool { return changes.Load() > before }, 3*time.Second, 20*time.Millisecond)
}

func TestRun_ForgetsRemovedDirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "gone")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "deeper"), 0o755))

	w := newWatcher(t, 50*time.Millisecond)
	require.NoError(t, w.Add(root))
	require.Equal(t, 3, w.Len())
	runWatcher(t, w)

	require.NoError(t, os.RemoveAll(sub))
	assert.Eventually(t, func() bool { return w.Len() == 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newWatcher(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClose_Idempotent(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.NoError(t, w.Add(t.TempDir()))
	assert.Zero(t, w.Len())
}

func TestIsSubPath(t *testing.T) {
	assert.True(t, isSubPath("/a/b", "/a"))
	assert.False(t, isSubPath("/ab", "/a"))
	assert.False(t, isSubPath("/a", "/a"))
}
