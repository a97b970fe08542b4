package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/treediff/pkg/treediff/config"
	"github.com/jamesainslie/treediff/pkg/treediff/logging"
	"github.com/jamesainslie/treediff/pkg/treediff/output"
	"github.com/jamesainslie/treediff/pkg/treediff/watch"
)

var (
	cfgFile string

	// cfg is the configuration loaded before any command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "treediff SOURCE TARGET",
		Short: "List paths that exist under SOURCE but not under TARGET",
		Long: `treediff indexes two directory trees in parallel and reports every
relative path present under SOURCE and absent under TARGET.

Only existence is compared: file contents, sizes, timestamps and permissions
are ignored, and paths present only under TARGET are not reported.

Examples:
  treediff /data /backup            # Count paths missing from the backup
  treediff -p /data /backup         # List them, one per line
  treediff -p -o json /data /backup # As a JSON document
  treediff -p -e .git -e '*.tmp' src dst
  treediff --watch -p /data /backup # Re-run whenever either tree changes
  treediff history                  # Previous runs`,
		Args:              cobra.ExactArgs(2),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: bootstrap,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
		RunE: runDiff,
	}
)

func init() {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/treediff/config.yaml)")
	persistent.BoolP("verbose", "v", false, "debug logging on stderr")
	persistent.BoolP("quiet", "q", false, "no logging on stderr and no summary line")

	flags := rootCmd.Flags()
	flags.BoolP("print", "p", false, "print the missing paths instead of only counting them")
	flags.StringSliceP("exclude", "e", nil, "exclude paths matching pattern (repeatable)")
	flags.StringP("output", "o", "", fmt.Sprintf("output format for --print: %v", output.Available()))
	flags.String("template", "", "Go template for -o template")
	flags.IntP("workers", "w", 0, "diff worker count (0=auto)")
	flags.Int("walk-workers", 0, "walk worker count per tree (0=auto)")
	flags.Int("chunk-size", 0, "force the membership chunk size (0=|source|/workers)")
	flags.Bool("watch", false, "re-run the diff whenever either tree changes")
	flags.Duration("debounce", watch.DefaultDebounce, "quiet period before a watched change triggers a re-run")
	flags.Bool("no-history", false, "do not record this run in the history")

	_ = viper.BindPFlag("verbose", persistent.Lookup("verbose"))
	_ = viper.BindPFlag("quiet", persistent.Lookup("quiet"))
	_ = viper.BindPFlag("exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("workers.diff", flags.Lookup("workers"))
	_ = viper.BindPFlag("workers.walk", flags.Lookup("walk-workers"))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}

// bootstrap loads configuration and initializes logging. It runs before
// every command.
func bootstrap(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(config.Options{File: cfgFile, Viper: viper.GetViper()})
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := buildLoggingConfig(cfg, getVerbose(), getQuiet())
	logCfg.Console = cmd.ErrOrStderr()
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Get("cli").Debug("configuration loaded", "file", cfg.File)
	return nil
}

// buildLoggingConfig maps the loaded configuration and the verbosity flags
// onto a logging.Config.
func buildLoggingConfig(c *config.Config, verbose, quiet bool) logging.Config {
	console := c.Logging.Console
	switch {
	case quiet:
		console = ""
	case verbose:
		console = "debug"
	}

	return logging.Config{
		Level:        c.Logging.Level,
		Path:         c.Logging.LogPath(),
		Rotation:     parseRotationConfig(c.Logging.Rotation),
		Components:   c.Logging.Components,
		ConsoleLevel: console,
	}
}

// parseRotationConfig converts the configured rotation settings. An
// unparseable max_size falls back to the default size.
func parseRotationConfig(r config.RotationConfig) logging.RotationConfig {
	size, err := r.MaxSizeBytes()
	if err != nil || size <= 0 {
		size = logging.DefaultRotationConfig().MaxSize
	}
	return logging.RotationConfig{
		MaxSize:    size,
		MaxAge:     r.MaxAge,
		MaxBackups: r.MaxBackups,
	}
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printError prints an error message to w, normally the command's stderr.
func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}
