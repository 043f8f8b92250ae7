package simvault

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with simvault-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithOrdinal adds an ordinal field to the logger.
func (l *Logger) WithOrdinal(ordinal int) *Logger {
	return &Logger{
		Logger: l.Logger.With("ordinal", ordinal),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, ordinal, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"ordinal", ordinal,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"ordinal", ordinal,
			"dimension", dimension,
		)
	}
}

// LogQuery logs a similarity query.
func (l *Logger) LogQuery(ctx context.Context, k, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"k", k,
			"matches", matches,
		)
	}
}

// LogMigration logs a metric migration.
func (l *Logger) LogMigration(ctx context.Context, from, to string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "metric migration failed",
			"from", from,
			"to", to,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "metric migration completed",
			"from", from,
			"to", to,
			"vectors", count,
		)
	}
}

// LogAnchor logs an anchoring attempt.
func (l *Logger) LogAnchor(ctx context.Context, identity, cid string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "anchor failed",
			"identity", identity,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "anchor confirmed",
			"identity", identity,
			"cid", cid,
		)
	}
}

// LogPersist logs a dual persist of the vector store and metadata ledger.
func (l *Logger) LogPersist(ctx context.Context, indexPath, metadataPath string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"index", indexPath,
			"metadata", metadataPath,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "persist completed",
			"index", indexPath,
			"metadata", metadataPath,
		)
	}
}
