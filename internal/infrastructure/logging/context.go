package logging

import (
	"context"

	"go.uber.org/zap"
)

// Log context field names.
const (
	FieldRequestID        = "request_id"
	FieldProjectID        = "project_id"
	FieldUserID           = "user_id"
	FieldTraceID          = "trace_id"
	FieldSpanID           = "span_id"
	FieldPostmanRequestID = "postman_request_id"
	FieldScriptHash       = "script_hash"
	FieldExecutionID      = "execution_id"
)

type loggerKey struct{}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or fallback when ctx has none.
// A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// With adds fields to the request logger in ctx. It is a no-op when ctx
// carries no logger.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	l, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok || l == nil || len(fields) == 0 {
		return ctx
	}
	return WithLogger(ctx, l.With(fields...))
}
