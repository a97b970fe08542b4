package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// appName names the treediff directories under the XDG base directories.
const appName = "treediff"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// MaxSizeBytes parses MaxSize ("10MB", "512KiB", ...) into bytes.
func (r RotationConfig) MaxSizeBytes() (int64, error) {
	if strings.TrimSpace(r.MaxSize) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(r.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.rotation.max_size %q: %w", r.MaxSize, err)
	}
	return int64(n), nil
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`

	// Console is the stderr log level. Empty disables console logging.
	Console string `mapstructure:"console"`

	// File enables the log file at the default location when Path is empty.
	File bool   `mapstructure:"file"`
	Path string `mapstructure:"path"`

	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// LogPath returns the log file to write, or "" when file logging is off.
func (l LoggingConfig) LogPath() string {
	if l.Path != "" {
		return l.Path
	}
	if l.File {
		return filepath.Join(StateDir(), appName+".log")
	}
	return ""
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Dir returns the history database directory.
func (h HistoryConfig) Dir() string {
	if h.Path != "" {
		return h.Path
	}
	return filepath.Join(DataDir(), "history")
}

// Config represents the application configuration.
type Config struct {
	Workers struct {
		Walk int `mapstructure:"walk"`
		Diff int `mapstructure:"diff"`
	} `mapstructure:"workers"`
	Exclude []string      `mapstructure:"exclude"`
	Output  string        `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	History HistoryConfig `mapstructure:"history"`

	// File is the config file that was read, or "" if none was found.
	File string `mapstructure:"-"`
}

// Options controls Load.
type Options struct {
	// File is an explicit config file. Empty searches the default locations.
	File string

	// Viper is the instance to load into. Callers bind command-line flags to
	// it before Load so flags take precedence over every other source.
	// Nil uses a fresh instance.
	Viper *viper.Viper
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/treediff/config.yaml
//   - $HOME/.config/treediff/config.yaml
//
// Environment variables are prefixed with TREEDIFF_ (e.g.
// TREEDIFF_WORKERS_DIFF). A missing config file is not an error.
func Load(opts Options) (*Config, error) {
	v := opts.Viper
	if v == nil {
		v = viper.New()
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, appName))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", appName))
		}
	}

	v.SetEnvPrefix("TREEDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.Logging.Path, &cfg.History.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers.walk", 0)
	v.SetDefault("workers.diff", 0)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.console", DefaultConsoleLevel)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultMaxLogSize)
	v.SetDefault("logging.rotation.max_age", DefaultMaxLogAge)
	v.SetDefault("logging.rotation.max_backups", DefaultMaxLogBackups)
	v.SetDefault("logging.components", map[string]string{})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention_days", DefaultRetentionDays)
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default config file and returns its path.
// An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

func defaultConfigFile() string {
	return fmt.Sprintf(`# treediff configuration

# Worker counts. 0 picks a value from the number of CPUs.
workers:
  walk: 0   # fastwalk workers per tree
  diff: 0   # membership workers; also sets chunk size = |source| / diff

# Patterns excluded from both trees (glob, matched against relative paths
# and base names)
exclude: []

# Formatter used by --print: paths, null, json, jsonl, yaml, template, pretty
output: %s

logging:
  # Log file level: debug, info, warn, error
  level: %s
  # Console (stderr) level; empty disables console logging
  console: %s
  # Write a log file at $XDG_STATE_HOME/treediff/treediff.log
  file: false
  # Explicit log file path (implies file logging)
  path: ""
  rotation:
    max_size: %s
    max_age: %d       # days
    max_backups: %d
  # Per-component levels: walker, diff, cli, history, watch
  components: {}

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/treediff/history
  path: ""
  retention_days: %d
`, DefaultOutput, DefaultLogLevel, DefaultConsoleLevel,
		DefaultMaxLogSize, DefaultMaxLogAge, DefaultMaxLogBackups, DefaultRetentionDays)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/treediff for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/treediff for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}
