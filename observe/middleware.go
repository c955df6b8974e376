package observe

import (
	"context"
	"time"
)

// OpFunc runs one store operation and reports how it ended.
type OpFunc func(ctx context.Context) (Outcome, error)

// Middleware wraps store operations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Run propagates the span context into fn.
//   - Errors: errors from fn are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its components. Nil components are
// replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the logger scoped to the store.
func (m *Middleware) Logger(meta StoreMeta) Logger {
	return m.logger.WithStore(meta)
}

// Run executes fn inside a span named after op and records its outcome.
func (m *Middleware) Run(ctx context.Context, meta StoreMeta, op string, fn OpFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta, op)
	start := time.Now()

	outcome, err := fn(ctx)
	if err != nil && outcome == "" {
		outcome = OutcomeError
	}
	duration := time.Since(start)

	m.tracer.EndSpan(span, outcome, err)
	m.metrics.RecordOperation(ctx, meta, op, outcome, duration, err)

	fields := []Field{
		{Key: "op", Value: op},
		{Key: "outcome", Value: string(outcome)},
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	logger := m.logger.WithStore(meta)
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err})
		logger.Debug(ctx, "cache operation failed", fields...)
	} else {
		logger.Debug(ctx, "cache operation completed", fields...)
	}

	return err
}

// Failure logs and counts an error the store absorbed instead of returning.
func (m *Middleware) Failure(ctx context.Context, meta StoreMeta, op, path string, err error) {
	m.metrics.RecordFailure(ctx, meta, op)
	m.logger.WithStore(meta).Warn(ctx, "cache "+op+" failed",
		Field{Key: "op", Value: op},
		Field{Key: "path", Value: path},
		Field{Key: "error", Value: err},
	)
}

// Swept records items removed by a sweep.
func (m *Middleware) Swept(ctx context.Context, meta StoreMeta, n int) {
	m.metrics.RecordSwept(ctx, meta, n)
}
