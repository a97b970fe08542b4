package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/treediff/pkg/treediff/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage treediff configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/treediff/config.yaml (if set)
  2. ~/.config/treediff/config.yaml

Environment variables override config file settings using the TREEDIFF_ prefix:
  TREEDIFF_WORKERS_DIFF=8
  TREEDIFF_OUTPUT=json
  TREEDIFF_EXCLUDE=.git,node_modules`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging all sources.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// envOverrides lists the environment variables shown by config show.
var envOverrides = []string{
	"TREEDIFF_WORKERS_WALK",
	"TREEDIFF_WORKERS_DIFF",
	"TREEDIFF_EXCLUDE",
	"TREEDIFF_OUTPUT",
	"TREEDIFF_LOGGING_LEVEL",
	"TREEDIFF_LOGGING_CONSOLE",
	"TREEDIFF_LOGGING_FILE",
	"TREEDIFF_LOGGING_PATH",
	"TREEDIFF_HISTORY_ENABLED",
	"TREEDIFF_HISTORY_PATH",
	"TREEDIFF_HISTORY_RETENTION_DAYS",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if cfg.File != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.File)
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	logPath := cfg.Logging.LogPath()
	if logPath == "" {
		logPath = "(disabled)"
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "workers.walk:           %s\n", autoInt(cfg.Workers.Walk))
	fmt.Fprintf(out, "workers.diff:           %s\n", autoInt(cfg.Workers.Diff))
	fmt.Fprintf(out, "exclude:                %v\n", cfg.Exclude)
	fmt.Fprintf(out, "output:                 %s\n", cfg.Output)
	fmt.Fprintf(out, "logging.level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.console:        %s\n", cfg.Logging.Console)
	fmt.Fprintf(out, "logging.path:           %s\n", logPath)
	fmt.Fprintf(out, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:           %s\n", cfg.History.Dir())
	fmt.Fprintf(out, "history.retention_days: %d\n", cfg.History.RetentionDays)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	anyOverrides := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

func autoInt(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	existed := false
	if _, err := os.Stat(configPath); err == nil {
		existed = true
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if existed {
		fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", configPath)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created default config file: %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(path))
	return nil
}
