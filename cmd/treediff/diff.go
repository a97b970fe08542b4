package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/treediff/pkg/treediff/config"
	"github.com/jamesainslie/treediff/pkg/treediff/diff"
	"github.com/jamesainslie/treediff/pkg/treediff/filter"
	"github.com/jamesainslie/treediff/pkg/treediff/history"
	"github.com/jamesainslie/treediff/pkg/treediff/logging"
	"github.com/jamesainslie/treediff/pkg/treediff/output"
	"github.com/jamesainslie/treediff/pkg/treediff/watch"
)

// runFlags are the per-invocation settings of the root command that have no
// configuration file counterpart.
type runFlags struct {
	print     bool
	template  string
	chunkSize int
	watch     bool
	debounce  time.Duration
	noHistory bool
	quiet     bool
}

func readRunFlags(cmd *cobra.Command) runFlags {
	flags := cmd.Flags()
	var rf runFlags
	rf.print, _ = flags.GetBool("print")
	rf.template, _ = flags.GetString("template")
	rf.chunkSize, _ = flags.GetInt("chunk-size")
	rf.watch, _ = flags.GetBool("watch")
	rf.debounce, _ = flags.GetDuration("debounce")
	rf.noHistory, _ = flags.GetBool("no-history")
	rf.quiet = getQuiet()
	return rf
}

// runDiff is the root command: diff SOURCE against TARGET.
func runDiff(cmd *cobra.Command, args []string) error {
	rf := readRunFlags(cmd)

	opts, err := diffOptions(cfg, rf.chunkSize)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cfg.Output, rf.template)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{
		engine:    diff.New(opts),
		formatter: formatter,
		flags:     rf,
		out:       cmd.OutOrStdout(),
		exclude:   cfg.Exclude,
	}

	if cfg.History.Enabled && !rf.noHistory {
		store, err := history.Open(cfg.History.Dir())
		if err != nil {
			logging.Get("cli").Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			r.history = store
			if cfg.History.RetentionDays > 0 {
				if _, err := store.Prune(time.Duration(cfg.History.RetentionDays) * 24 * time.Hour); err != nil {
					logging.Get("cli").Warn("history prune failed", "error", err)
				}
			}
		}
	}

	if rf.watch {
		return r.watchLoop(ctx, args[0], args[1])
	}
	return r.run(ctx, args[0], args[1])
}

// diffOptions builds engine options from configuration. chunkSize comes from
// the command line only.
func diffOptions(c *config.Config, chunkSize int) (diff.Options, error) {
	if chunkSize < 0 {
		return diff.Options{}, fmt.Errorf("--chunk-size must not be negative, got %d", chunkSize)
	}
	if c.Workers.Diff < 0 || c.Workers.Walk < 0 {
		return diff.Options{}, fmt.Errorf("worker counts must not be negative")
	}

	m, err := filter.New(c.Exclude...)
	if err != nil {
		return diff.Options{}, err
	}

	return diff.Options{
		Workers:     c.Workers.Diff,
		WalkWorkers: c.Workers.Walk,
		ChunkSize:   chunkSize,
		Exclude:     m,
	}, nil
}

// newFormatter returns the named formatter. A non-empty tmpl selects the
// template formatter when no other format was asked for.
func newFormatter(name, tmpl string) (output.Formatter, error) {
	if name == "" {
		name = output.DefaultFormat
	}
	if tmpl != "" && name == output.DefaultFormat {
		name = "template"
	}

	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, output.Available())
	}
	if tf, ok := f.(*output.TemplateFormatter); ok && tmpl != "" {
		tf.SetTemplate(tmpl)
	}
	return f, nil
}

// runner executes one or more diffs with fixed settings.
type runner struct {
	engine    *diff.Engine
	formatter output.Formatter
	flags     runFlags
	out       io.Writer
	history   *history.Store
	exclude   []string
}

// run performs a single diff and reports it.
func (r *runner) run(ctx context.Context, source, target string) error {
	logger := logging.Get("cli")

	res, err := r.engine.Diff(ctx, source, target)
	if err != nil {
		return err
	}

	summary := summaryLine(res.Stats.Missing, source, target)
	logger.Info(summary)

	if err := r.report(res, summary); err != nil {
		return err
	}

	if r.history != nil {
		if _, err := r.history.Record(newRun(res, r.exclude)); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}
	return nil
}

// report writes the result: the formatted paths with --print, otherwise
// the summary line.
func (r *runner) report(res *diff.Result, summary string) error {
	if !r.flags.print {
		if !r.flags.quiet {
			_, err := fmt.Fprintln(r.out, summary)
			return err
		}
		return nil
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, output.FromDiff(res)); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err := r.out.Write(buf.Bytes())
	return err
}

// watchLoop runs the diff, then re-runs it after every settled change to either
// tree until ctx is done.
func (r *runner) watchLoop(ctx context.Context, source, target string) error {
	logger := logging.Get("cli")

	if err := r.run(ctx, source, target); err != nil {
		return err
	}

	w, err := watch.New(r.flags.debounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	for _, root := range []string{source, target} {
		if err := w.Add(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}
	logger.Info("watching for changes", "directories", w.Len())

	w.Run(ctx, func() {
		if err := r.run(ctx, source, target); err != nil && ctx.Err() == nil {
			// Keep watching: a vanished root may come back.
			logger.Error("diff failed", "error", err)
		}
	})
	return nil
}

// summaryLine is the one-line report printed without --print.
func summaryLine(missing int, source, target string) string {
	noun := "paths"
	if missing == 1 {
		noun = "path"
	}
	return fmt.Sprintf("%d %s in %s and not in %s", missing, noun, source, target)
}

// newRun converts a diff result into a history record.
func newRun(res *diff.Result, exclude []string) history.Run {
	return history.Run{
		StartedAt:     time.Now().Add(-(res.Stats.WalkDuration + res.Stats.DiffDuration)),
		Source:        res.Source,
		Target:        res.Target,
		Exclude:       exclude,
		SourceEntries: res.Stats.SourceEntries,
		TargetEntries: res.Stats.TargetEntries,
		Missing:       res.Stats.Missing,
		Skipped:       res.Stats.SourceSkipped + res.Stats.TargetSkipped,
		Excluded:      res.Stats.SourceExcluded + res.Stats.TargetExcluded,
		Workers:       res.Stats.Workers,
		Duration:      res.Stats.WalkDuration + res.Stats.DiffDuration,
		Paths:         res.Paths.Paths(),
	}
}
