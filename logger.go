package spatialknn

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/spatialknn/model"
)

// Logger wraps slog.Logger with index-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithID adds an object id field to the logger.
func (l *Logger) WithID(id model.ObjectID) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", uint64(id)),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id model.ObjectID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"id", uint64(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"id", uint64(id),
		)
	}
}

// LogBulkLoad logs a batch insert. bulk reports whether the tree was packed
// in one pass or filled by single inserts.
func (l *Logger) LogBulkLoad(ctx context.Context, count int, bulk bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch insert failed",
			"count", count,
			"bulk", bulk,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch insert completed",
			"count", count,
			"bulk", bulk,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id model.ObjectID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", uint64(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", uint64(id),
		)
	}
}

// LogSearch logs a KNN or range query.
func (l *Logger) LogSearch(ctx context.Context, kind string, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"kind", kind,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"kind", kind,
			"results", resultsFound,
		)
	}
}

// LogCacheUpdate logs KNN cache maintenance.
func (l *Logger) LogCacheUpdate(ctx context.Context, op string, objects, updated int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "knn cache update failed",
			"op", op,
			"objects", objects,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "knn cache updated",
			"op", op,
			"objects", objects,
			"updated", updated,
		)
	}
}

// LogFlush logs a page store flush.
func (l *Logger) LogFlush(ctx context.Context, pages int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "flush completed",
			"pages", pages,
		)
	}
}
