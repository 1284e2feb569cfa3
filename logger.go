package vismatch

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vismatch-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithID adds an id field to the logger.
func (l *Logger) WithID(id int) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// LogEnroll logs an enrollment.
func (l *Logger) LogEnroll(ctx context.Context, id, points int, err error) {
	if err != nil {
		l.WarnContext(ctx, "enroll failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "enroll completed",
			"id", id,
			"points", points,
		)
	}
}

// LogQuery logs a query. matchedID is NoMatch when nothing was recognized.
func (l *Logger) LogQuery(ctx context.Context, queryPoints, candidates, matchedID, inliers int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query_points", queryPoints,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"query_points", queryPoints,
			"candidates", candidates,
			"matched_id", matchedID,
			"inliers", inliers,
		)
	}
}

// LogErase logs an erase.
func (l *Logger) LogErase(ctx context.Context, id int, existed bool) {
	l.DebugContext(ctx, "erase completed",
		"id", id,
		"existed", existed,
	)
}
