package logging

import (
	"context"
	"log/slog"

	"camreview/internal/services"
)

// Field names shared by every log record.
const (
	FieldComponent     = "component"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
	FieldCorrelationID = "correlation_id"
	FieldPath          = "path"
	FieldJobID         = "job_id"
	FieldDecisionType  = "decision_type"
)

// ContextFields extracts well-known values stored on ctx as log attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id, ok := services.RequestIDFromContext(ctx); ok && id != "" {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	if path, ok := services.PathFromContext(ctx); ok && path != "" {
		attrs = append(attrs, String(FieldPath, path))
	}
	if id, ok := services.JobIDFromContext(ctx); ok && id != "" {
		attrs = append(attrs, String(FieldJobID, id))
	}
	return attrs
}

// WithContext returns a logger enriched with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
