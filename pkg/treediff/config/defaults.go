// Package config provides configuration management for treediff.
package config

// Default configuration values.
const (
	// DefaultOutput is the formatter used by --print.
	DefaultOutput = "paths"

	// DefaultLogLevel is the log file level.
	DefaultLogLevel = "info"

	// DefaultConsoleLevel is the stderr log level when neither --verbose nor
	// --quiet is given.
	DefaultConsoleLevel = "warn"

	// DefaultMaxLogSize is the size at which the log file rotates.
	DefaultMaxLogSize = "10MB"

	// DefaultMaxLogAge is the number of days rotated logs are kept.
	DefaultMaxLogAge = 30

	// DefaultMaxLogBackups is the number of rotated logs kept.
	DefaultMaxLogBackups = 5

	// DefaultRetentionDays is the number of days run history is kept.
	DefaultRetentionDays = 30
)

// DefaultExclusions is empty: by default both trees are indexed in full.
var DefaultExclusions = []string{}
