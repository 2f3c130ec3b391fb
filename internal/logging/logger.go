// Package logging builds the zerolog logger shared by all commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level      zerolog.Level
	Format     string // "json" or "console"
	TimeFormat string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.WarnLevel,
		Format:     "console",
		TimeFormat: time.RFC3339,
	}
}

// New creates a zerolog logger with the given configuration.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stderr

	switch cfg.Format {
	case "console":
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: cfg.TimeFormat,
		}
	case "json":
		// JSON is the default zerolog format.
		output = os.Stderr
	}

	return zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// Setup builds the logger from environment variables and CLI flags.
// CLEARMODEL_LOG_LEVEL: trace, debug, info, warn, error (default: warn)
// CLEARMODEL_LOG_FORMAT: json, console (default: console)
// The --debug and --verbose flags override the environment level.
func Setup(debug, verbose bool) zerolog.Logger {
	cfg := DefaultConfig()

	if level := os.Getenv("CLEARMODEL_LOG_LEVEL"); level != "" {
		switch level {
		case "trace":
			cfg.Level = zerolog.TraceLevel
		case "debug":
			cfg.Level = zerolog.DebugLevel
		case "info":
			cfg.Level = zerolog.InfoLevel
		case "warn":
			cfg.Level = zerolog.WarnLevel
		case "error":
			cfg.Level = zerolog.ErrorLevel
		}
	}

	if format := os.Getenv("CLEARMODEL_LOG_FORMAT"); format != "" {
		switch format {
		case "json", "console":
			cfg.Format = format
		}
	}

	// Flags win over the environment.
	switch {
	case debug:
		cfg.Level = zerolog.DebugLevel
	case verbose:
		cfg.Level = zerolog.InfoLevel
	}

	return New(cfg)
}
