// Package logging configures the process-wide zerolog logger for shellview.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DebugEnabled controls whether Debug() produces output.
// Set via --debug, SHELLVIEW_LOG_DEBUG=1 or the config file.
var DebugEnabled bool

// baseLevel is the configured level, restored when debug is switched off.
var baseLevel = zerolog.InfoLevel

// Options selects where log output goes.
type Options struct {
	// File receives the log when set. The TUI owns the terminal, so
	// interactive commands log to a file or nowhere.
	File string
	// Console writes human-readable output to stderr instead of JSON.
	Console bool
	Level   string
	Debug   bool
}

// Setup installs the global logger. The returned closer releases the log
// file, if one was opened.
func Setup(opts Options) (io.Closer, error) {
	var out io.Writer = io.Discard
	var closer io.Closer = nopCloser{}

	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	case opts.Console:
		out = os.Stderr
	}

	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: opts.File != ""}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	baseLevel = ParseLevel(opts.Level)
	SetDebug(opts.Debug)
	return closer, nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebug toggles debug output at runtime, e.g. after a config reload.
// Turning it off returns to the level given to Setup.
func SetDebug(enabled bool) {
	DebugEnabled = enabled
	level := baseLevel
	if enabled && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Debug().Msgf(format, args...)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
