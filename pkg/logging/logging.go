// Package logging wraps charmbracelet/log for the reconciliation engine.
// The daemon builds one root logger from its flags; every engine component
// derives a prefixed logger from it, so a whole run shares level, output
// and time format.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the engine's structured logger. Derive loggers from New or
// Component rather than constructing the struct directly.
type Logger struct {
	*log.Logger
}

// Config holds the root logger options the CLI exposes.
type Config struct {
	Level      string
	TimeFormat string
	Output     io.Writer
}

// New builds the root logger. Logs go to stderr by default so batch result
// output on stdout stays machine-readable; unknown level strings fall back
// to info rather than failing a run over a flag typo.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.TimeOnly
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	logger := log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Prefix:          "recond",
		Level:           level,
	})
	return &Logger{Logger: logger}
}

// Component derives a logger whose prefix names an engine component
// ("router", "api", "ws"). Level, output and time format follow the parent.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.WithPrefix(name)}
}

var defaultLogger = New(nil)

// SetDefault installs the process-wide logger components fall back to when
// none is passed in explicitly.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// GetDefault returns the process-wide logger.
func GetDefault() *Logger {
	return defaultLogger
}
