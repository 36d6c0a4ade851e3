package catdb

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with catdb-specific context.
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
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithRoot adds the database root to the logger.
func (l *Logger) WithRoot(root string) *Logger {
	return &Logger{
		Logger: l.Logger.With("root", root),
	}
}

// LogConfig logs the outcome of loading the store configuration.
func (l *Logger) LogConfig(ctx context.Context, cfg *Config, err error) {
	if err != nil {
		l.ErrorContext(ctx, "config load failed",
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "config loaded",
		"version", cfg.Version,
		"sizing", cfg.Sizing,
		"shard_depth", cfg.ShardDepth(),
		"compression", string(cfg.Compression),
	)
}

// LogPut logs a put of one entry. created is false for overwrites.
func (l *Logger) LogPut(ctx context.Context, name string, hash Hash, created bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "put failed",
			"name", name,
			"hash", hash,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "put completed",
			"name", name,
			"hash", hash,
			"created", created,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"name", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"name", name,
		)
	}
}

// LogIndex logs an index mutation.
func (l *Logger) LogIndex(ctx context.Context, op string, category Hash, index string, member Hash) {
	l.DebugContext(ctx, "index "+op,
		"category", category,
		"index", index,
		"member", member,
	)
}

// LogLoad logs the summary of a directory load.
func (l *Logger) LogLoad(ctx context.Context, dir string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"dir", dir,
			"count", count,
		)
	}
}

// LogPackages logs how many packages were materialized.
func (l *Logger) LogPackages(ctx context.Context, written int) {
	if written > 0 {
		l.InfoContext(ctx, "packages written",
			"count", written,
		)
	}
}
