// Package logging provides component loggers for treediff built on
// charmbracelet/log.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info", ConsoleLevel: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("walker")
//	logger.Info("walk started", "root", "/srv/data")
//
// Before Init is called every logger discards its output. Init replaces the
// sinks, so packages fetch their logger with Get at the start of each
// operation rather than caching it in a package variable.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for the log file.
	Level string

	// Path is the log file path. Empty disables file logging.
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to level overrides.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string

	// Console overrides the console destination. Defaults to os.Stderr.
	Console io.Writer
}

// Logger is a component logger. It writes to the log file and, when enabled,
// to the console.
type Logger struct {
	component string
	file      *log.Logger
	console   *log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.file.Debug(msg, keyvals...)
	if l.console != nil {
		l.console.Debug(msg, keyvals...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.file.Info(msg, keyvals...)
	if l.console != nil {
		l.console.Info(msg, keyvals...)
	}
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.file.Warn(msg, keyvals...)
	if l.console != nil {
		l.console.Warn(msg, keyvals...)
	}
}

// Error logs an error.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.file.Error(msg, keyvals...)
	if l.console != nil {
		l.console.Error(msg, keyvals...)
	}
}

// With returns a logger that adds keyvals to every entry.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	out := &Logger{
		component: l.component,
		file:      l.file.With(keyvals...),
	}
	if l.console != nil {
		out.console = l.console.With(keyvals...)
	}
	return out
}

// Component returns the component name the logger was created for.
func (l *Logger) Component() string {
	return l.component
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	console     io.Writer
	consoleOn   bool
	consoleLvl  Level
	loggers     map[string]*Logger
}

var global = &state{
	components: make(map[string]Level),
	loggers:    make(map[string]*Logger),
}

// Init configures the logging system. Calling Init again replaces the
// previous configuration; loggers already handed out keep their old sinks,
// so callers should call Get after Init.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var consoleLvl Level
	consoleOn := cfg.ConsoleLevel != ""
	if consoleOn {
		consoleLvl, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	var writer *RotatingWriter
	if cfg.Path != "" {
		writer, err = NewRotatingWriter(cfg.Path, cfg.Rotation)
		if err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer != nil {
		_ = global.writer.Close()
	}

	global.initialized = true
	global.writer = writer
	global.level = level
	global.components = components
	global.consoleOn = consoleOn
	global.consoleLvl = consoleLvl
	global.console = cfg.Console
	if global.console == nil {
		global.console = os.Stderr
	}
	global.loggers = make(map[string]*Logger)

	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	global.mu.RLock()
	logger, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return logger
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}
	logger = newLogger(component)
	global.loggers[component] = logger
	return logger
}

// newLogger must be called with global.mu held.
func newLogger(component string) *Logger {
	level := global.level
	if lvl, ok := global.components[component]; ok {
		level = lvl
	}

	var fileOut io.Writer = io.Discard
	if global.writer != nil {
		fileOut = global.writer
	}

	logger := &Logger{
		component: component,
		file: log.NewWithOptions(fileOut, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}

	if global.initialized && global.consoleOn {
		logger.console = log.NewWithOptions(global.console, log.Options{
			Level:           global.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file and resets the logging system to its
// silent pre-Init state.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	var err error
	if global.writer != nil {
		err = global.writer.Close()
		global.writer = nil
	}

	global.initialized = false
	global.consoleOn = false
	global.level = LevelInfo
	global.components = make(map[string]Level)
	global.loggers = make(map[string]*Logger)

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/treediff/treediff.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "treediff", "treediff.log")
}
