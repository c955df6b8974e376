package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// StoreMeta identifies a cache store in telemetry.
type StoreMeta struct {
	Name   string // Directory name under the temp root
	Root   string // Absolute store directory
	Source string // Digest salt (optional)
	Prefix string // Item file prefix (optional)
}

// SpanName returns the span name for an operation on the store.
// Format: tempcache.<op>
func (m StoreMeta) SpanName(op string) string {
	return "tempcache." + op
}

func (m StoreMeta) attributes(op string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("cache.name", m.Name),
		attribute.String("cache.op", op),
	}
	if m.Prefix != "" {
		attrs = append(attrs, attribute.String("cache.prefix", m.Prefix))
	}
	return attrs
}

// Outcome classifies how a cache operation ended.
type Outcome string

const (
	OutcomeHit    Outcome = "hit"    // a valid item was loaded
	OutcomeMiss   Outcome = "miss"   // the value was computed and stored
	OutcomeBypass Outcome = "bypass" // the value was computed but disk was skipped or failed
	OutcomeDone   Outcome = "done"   // a non-lookup operation finished
	OutcomeError  Outcome = "error"
)

// Tracer wraps OpenTelemetry tracing with store-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for op on the store.
	StartSpan(ctx context.Context, meta StoreMeta, op string) (context.Context, trace.Span)

	// EndSpan records the outcome and any error, then ends the span.
	EndSpan(span trace.Span, outcome Outcome, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta StoreMeta, op string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(op),
		trace.WithAttributes(meta.attributes(op)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(attribute.String("cache.outcome", string(outcome)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta StoreMeta, op string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName(op))
}

func (t *noopTracer) EndSpan(span trace.Span, _ Outcome, _ error) {
	span.End()
}
