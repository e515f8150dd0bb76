// Package util provides shared helpers for logging, retries, rate limiting,
// and trading-day arithmetic.
package util

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level string to a slog.Level. Unrecognised strings map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewTextLogger creates a human-readable logger writing to w. Long-running
// commands pass an io.MultiWriter here so output lands on the console and in
// a log file at once.
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
