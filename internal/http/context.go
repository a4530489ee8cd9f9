package http

import (
	"context"
	"log/slog"

	"github.com/example/prompt-scheduler/internal/logging"
)

type contextKey string

const groupIDContextKey contextKey = "group_id"

// ContextWithGroupID injects the group identifier resolved from the request path.
func ContextWithGroupID(ctx context.Context, groupID string) context.Context {
	return context.WithValue(ctx, groupIDContextKey, groupID)
}

// GroupIDFromContext extracts a group identifier previously associated with the context.
func GroupIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(groupIDContextKey).(string)
	return id, ok
}

// ContextWithLogger returns a derived context carrying the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger if one is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger resolves the logger for one request, preferring the one the
// middleware attached to the context, and scopes it to the handler.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
