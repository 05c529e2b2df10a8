// Package logging builds the slog loggers shared by the server and the CLI.
package logging

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/me/satalloc/internal/config"
)

// NewLogger creates a logger writing to stderr; stdout carries command output.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// FromConfig creates a stderr logger from the server's log settings.
func FromConfig(cfg config.ServerConfig) *slog.Logger {
	return NewLogger(ParseLevel(cfg.LogLevel), cfg.LogFormat)
}

// NewLoggerWithWriter creates a logger writing to w in "text" or "json" format.
// Float attributes (schedule times) are rounded to milliseconds.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: roundFloats,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roundFloats(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindFloat64 {
		f := a.Value.Float64()
		if !math.IsInf(f, 0) && !math.IsNaN(f) {
			a.Value = slog.Float64Value(math.Round(f*1000) / 1000)
		}
	}
	return a
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
