package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/treediff/pkg/treediff/config"
	"github.com/jamesainslie/treediff/pkg/treediff/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View previous runs",
	Long: `View the history of diff runs.

Every successful diff is recorded with its roots, counts and up to
10000 of the missing paths unless --no-history is given or
history.enabled is false.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show details of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

// showPathLimit caps the paths printed by history show.
const showPathLimit = 50

func init() {
	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(c *config.Config) (*history.Store, error) {
	s, err := history.Open(c.History.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		fmt.Fprintln(out, "Run 'treediff SOURCE TARGET' to record one.")
		return nil
	}

	fmt.Fprintf(out, "\n%-36s  %-14s  %9s  %s\n", "ID", "WHEN", "MISSING", "SOURCE -> TARGET")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(out, "%-36s  %-14s  %9s  %s -> %s\n",
			run.ID,
			humanize.Time(run.StartedAt),
			humanize.Comma(int64(run.Missing)),
			run.Source,
			run.Target,
		)
	}
	fmt.Fprintln(out, strings.Repeat("-", 100))
	fmt.Fprintf(out, "\nShowing %d runs. Use --limit to see more.\n", len(runs))
	fmt.Fprintln(out, "Use 'treediff history show <id>' for details on a specific run.")

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nRun Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:        %s\n", run.ID)
	fmt.Fprintf(out, "Started:   %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(run.StartedAt))
	fmt.Fprintf(out, "Source:    %s (%s entries)\n", run.Source, humanize.Comma(int64(run.SourceEntries)))
	fmt.Fprintf(out, "Target:    %s (%s entries)\n", run.Target, humanize.Comma(int64(run.TargetEntries)))
	fmt.Fprintf(out, "Missing:   %s\n", humanize.Comma(int64(run.Missing)))
	if len(run.Exclude) > 0 {
		fmt.Fprintf(out, "Exclude:   %s\n", strings.Join(run.Exclude, ", "))
	}
	if run.Skipped > 0 {
		fmt.Fprintf(out, "Skipped:   %s unreadable entries\n", humanize.Comma(run.Skipped))
	}
	fmt.Fprintf(out, "Duration:  %s\n", run.Duration.Round(time.Millisecond))

	if len(run.Paths) > 0 {
		fmt.Fprintln(out, "\nPaths:")
		fmt.Fprintln(out, strings.Repeat("-", 60))
		shown := min(len(run.Paths), showPathLimit)
		for _, p := range run.Paths[:shown] {
			fmt.Fprintln(out, p)
		}
		if rest := run.Missing - shown; rest > 0 {
			fmt.Fprintf(out, "\n... and %s more\n", humanize.Comma(int64(rest)))
		}
	}

	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	s, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	removed, err := s.Prune(time.Duration(retentionDays) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	if !getQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs older than %d days.\n", removed, retentionDays)
	}
	return nil
}
