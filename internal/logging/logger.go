// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger and returns it.
// In production it uses JSON output for log aggregation; otherwise the
// human-readable text handler. Logs go to stderr so command output on
// stdout stays clean.
func Init(level, environment string) *slog.Logger {
	logger := New(os.Stderr, level, environment)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, level, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level, environment)}

	var handler slog.Handler
	if strings.EqualFold(environment, "production") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level. An empty name defaults to
// info in production and warn elsewhere, keeping interactive sessions quiet.
func ParseLevel(level, environment string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if strings.EqualFold(environment, "production") {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// WithSession returns a logger scoped to one tutoring session.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}
