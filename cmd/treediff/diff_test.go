package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/treediff/pkg/treediff/config"
	"github.com/jamesainslie/treediff/pkg/treediff/diff"
	"github.com/jamesainslie/treediff/pkg/treediff/filter"
	"github.com/jamesainslie/treediff/pkg/treediff/history"
	"github.com/jamesainslie/treediff/pkg/treediff/output"
	"github.com/jamesainslie/treediff/pkg/treediff/walker"
)

func makeTree(t *testing.T, entries ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, e := range entries {
		full := filepath.Join(root, filepath.FromSlash(e))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
	return root
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "0 paths in /a and not in /b", summaryLine(0, "/a", "/b"))
	assert.Equal(t, "1 path in src and not in dst", summaryLine(1, "src", "dst"))
	assert.Equal(t, "12 paths in src and not in dst", summaryLine(12, "src", "dst"))
}

func TestDiffOptions(t *testing.T) {
	c := &config.Config{Exclude: []string{".git"}}
	c.Workers.Diff = 3
	c.Workers.Walk = 5

	opts, err := diffOptions(c, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 5, opts.WalkWorkers)
	assert.Equal(t, 7, opts.ChunkSize)
	require.NotNil(t, opts.Exclude)
	assert.True(t, opts.Exclude.Excluded(".git/config"))
}

func TestDiffOptions_Errors(t *testing.T) {
	_, err := diffOptions(&config.Config{}, -1)
	assert.Error(t, err)

	_, err = diffOptions(&config.Config{Exclude: []string{"[unclosed"}}, 0)
	assert.ErrorIs(t, err, filter.ErrInvalidPattern)

	neg := &config.Config{}
	neg.Workers.Diff = -2
	_, err = diffOptions(neg, 0)
	assert.Error(t, err)
}

func TestNewFormatter(t *testing.T) {
	f, err := newFormatter("", "")
	require.NoError(t, err)
	assert.IsType(t, &output.PathsFormatter{}, f)

	f, err = newFormatter("json", "")
	require.NoError(t, err)
	assert.IsType(t, &output.JSONFormatter{}, f)

	f, err = newFormatter("paths", "{{len .Paths}}")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &output.Result{Paths: []string{"a", "b"}}))
	assert.Equal(t, "2", buf.String())

	_, err = newFormatter("xml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func newTestRunner(t *testing.T, rf runFlags) (*runner, *bytes.Buffer) {
	t.Helper()
	f, err := newFormatter("", "")
	require.NoError(t, err)
	var out bytes.Buffer
	return &runner{
		engine:    diff.New(diff.Options{Workers: 2}),
		formatter: f,
		flags:     rf,
		out:       &out,
	}, &out
}

func TestRunner_SummaryOnly(t *testing.T) {
	src := makeTree(t, "a", "b/c", "b/d")
	dst := makeTree(t, "a", "b/d")

	r, out := newTestRunner(t, runFlags{})
	require.NoError(t, r.run(context.Background(), src, dst))
	assert.Equal(t, "1 path in "+src+" and not in "+dst+"\n", out.String())
}

func TestRunner_Print(t *testing.T) {
	src := makeTree(t, "a", "b/c", "b/d", "e/f")
	dst := makeTree(t, "a", "b/d")

	r, out := newTestRunner(t, runFlags{print: true})
	require.NoError(t, r.run(context.Background(), src, dst))
	assert.Equal(t, []string{"b/c", "e", "e/f"}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestRunner_Quiet(t *testing.T) {
	src := makeTree(t, "a")
	dst := makeTree(t)

	r, out := newTestRunner(t, runFlags{quiet: true})
	require.NoError(t, r.run(context.Background(), src, dst))
	assert.Empty(t, out.String())
}

func TestRunner_MissingTarget(t *testing.T) {
	src := makeTree(t, "a")

	r, out := newTestRunner(t, runFlags{print: true})
	err := r.run(context.Background(), src, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, walker.ErrRootNotReadable)
	assert.Empty(t, out.String(), "nothing is printed when the target cannot be read")
}

func TestRunner_RecordsHistory(t *testing.T) {
	src := makeTree(t, "a", "b")
	dst := makeTree(t, "a")

	store, err := history.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	r, _ := newTestRunner(t, runFlags{})
	r.history = store
	r.exclude = []string{"*.tmp"}
	require.NoError(t, r.run(context.Background(), src, dst))

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run, err := store.Get(runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Missing)
	assert.Equal(t, []string{"b"}, run.Paths)
	assert.Equal(t, []string{"*.tmp"}, run.Exclude)
	assert.Equal(t, 2, run.SourceEntries)
}
