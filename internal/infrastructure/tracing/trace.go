package tracing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Span is one timed harvester operation
type Span struct {
	TraceID  string
	SpanID   string
	ParentID string
	Name     string
	Start    time.Time
	Duration time.Duration
	Tags     map[string]string
	Err      error

	tracer *Tracer
}

// Tracer creates spans and logs them when they end.
// A nil *Tracer is valid and still propagates IDs.
type Tracer struct {
	logger *zap.Logger
}

// New creates a tracer logging finished spans to logger
func New(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger}
}

// StartSpan opens a span under the trace carried by ctx, or a new trace
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   uuid.NewString(),
		ParentID: SpanID(ctx),
		Name:     name,
		Start:    time.Now(),
		Tags:     make(map[string]string),
		tracer:   t,
	}
	ctx = context.WithValue(ctx, traceIDKey, span.TraceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records the failure of the operation
func (s *Span) SetError(err error) {
	s.Err = err
}

// End stops the clock and logs the span
func (s *Span) End() {
	s.Duration = time.Since(s.Start)
	if s.tracer == nil {
		return
	}

	fields := make([]zap.Field, 0, 5+len(s.Tags))
	fields = append(fields,
		zap.String("trace_id", s.TraceID),
		zap.String("span_id", s.SpanID),
		zap.String("operation", s.Name),
		zap.Duration("duration", s.Duration),
	)
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", s.ParentID))
	}
	for k, v := range s.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if s.Err != nil {
		s.tracer.logger.Warn("Span failed", append(fields, zap.Error(s.Err))...)
		return
	}
	s.tracer.logger.Debug("Span finished", fields...)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceID returns the trace ID carried by ctx
func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

// SpanID returns the current span ID carried by ctx
func SpanID(ctx context.Context) string {
	spanID, _ := ctx.Value(spanIDKey).(string)
	return spanID
}

// WithTrace returns a context continuing an existing trace
func WithTrace(ctx context.Context, traceID, parentID string) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if parentID != "" {
		ctx = context.WithValue(ctx, spanIDKey, parentID)
	}
	return ctx
}
