package logging

import (
	"context"
	"log/slog"
	"time"
)

// String constructs a string attribute.
func String(key, value string) slog.Attr { return slog.String(key, value) }

// Int constructs an integer attribute.
func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

// Int64 constructs a 64-bit integer attribute.
func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

// Bool constructs a boolean attribute.
func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

// Float64 constructs a float attribute.
func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

// Duration constructs a duration attribute.
func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Any constructs an attribute holding an arbitrary value.
func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

// Error wraps an error as an attribute. Nil errors produce an empty attribute
// that handlers drop.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Args converts attributes into variadic arguments for slog calls.
func Args(attrs ...slog.Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	return out
}

// NoopHandler discards every record.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h NoopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h NoopHandler) WithGroup(string) slog.Handler           { return h }

// NewNop returns a logger that discards all output.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags a logger with a component name, falling back to a
// no-op logger when base is nil.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = NewNop()
	}
	if component == "" {
		return base
	}
	return base.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning carrying the triage fields used across the
// application: event type, a remediation hint, and the impact.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	all := append([]slog.Attr{String(FieldEventType, eventType)}, attrs...)
	logger.Warn(msg, Args(all...)...)
}

// ErrorWithContext logs an error record tagged with an event type.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	all := append([]slog.Attr{String(FieldEventType, eventType)}, attrs...)
	logger.Error(msg, Args(all...)...)
}
