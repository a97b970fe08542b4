package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and XDG_CONFIG_HOME at a fresh temp dir and clears
// TREEDIFF_ variables that would leak in from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "TREEDIFF_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "treediff")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Zero(t, cfg.Workers.Walk)
	assert.Zero(t, cfg.Workers.Diff)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultConsoleLevel, cfg.Logging.Console)
	assert.Empty(t, cfg.Logging.LogPath())
	assert.Equal(t, DefaultMaxLogBackups, cfg.Logging.Rotation.MaxBackups)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Empty(t, cfg.File)
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `
workers:
  walk: 6
  diff: 3
exclude:
  - .git
  - "*.tmp"
output: json
logging:
  level: debug
  path: ~/logs/td.log
  components:
    walker: warn
history:
  enabled: false
  path: /var/lib/treediff
  retention_days: 7
`)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 6, cfg.Workers.Walk)
	assert.Equal(t, 3, cfg.Workers.Diff)
	assert.Equal(t, []string{".git", "*.tmp"}, cfg.Exclude)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(home, "logs", "td.log"), cfg.Logging.LogPath())
	assert.Equal(t, "warn", cfg.Logging.Components["walker"])
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/treediff", cfg.History.Dir())
	assert.Equal(t, 7, cfg.History.RetentionDays)
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	dir := filepath.Join(xdgHome, "treediff")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output: yaml\n"), 0o644))

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: pretty\n"), 0o644))

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, "pretty", cfg.Output)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "workers: [unterminated\n")

	_, err := Load(Options{})
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "workers:\n  diff: 3\noutput: json\n")
	t.Setenv("TREEDIFF_WORKERS_DIFF", "9")
	t.Setenv("TREEDIFF_LOGGING_CONSOLE", "error")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers.Diff)
	assert.Equal(t, "error", cfg.Logging.Console)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_ExplicitValuesOverrideEverything(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "output: json\n")
	t.Setenv("TREEDIFF_OUTPUT", "yaml")

	v := viper.New()
	v.Set("output", "null")

	cfg, err := Load(Options{Viper: v})
	require.NoError(t, err)
	assert.Equal(t, "null", cfg.Output)
}

func TestLoggingConfig_LogPath(t *testing.T) {
	assert.Empty(t, LoggingConfig{}.LogPath())
	assert.Equal(t, "/tmp/x.log", LoggingConfig{Path: "/tmp/x.log"}.LogPath())
	assert.Equal(t, filepath.Join(StateDir(), "treediff.log"), LoggingConfig{File: true}.LogPath())
}

func TestRotationConfig_MaxSizeBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "10MB", want: 10_000_000},
		{in: "1MiB", want: 1 << 20},
		{in: "512", want: 512},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RotationConfig{MaxSize: tt.in}.MaxSizeBytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "treediff", "config.yaml"), path)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultMaxLogSize, cfg.Logging.Rotation.MaxSize)

	require.NoError(t, os.WriteFile(path, []byte("output: json\n"), 0o644))
	_, err = WriteDefault()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "output: json\n", string(data), "existing config must not be overwritten")
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "a", "b"), got)

	got, err = ExpandPath("/abs")
	require.NoError(t, err)
	assert.Equal(t, "/abs", got)
}

func TestDirs(t *testing.T) {
	assert.Equal(t, "treediff", filepath.Base(DataDir()))
	assert.Equal(t, "treediff", filepath.Base(StateDir()))
	assert.Equal(t, filepath.Join(DataDir(), "history"), HistoryConfig{}.Dir())
}
