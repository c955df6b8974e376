package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricOpsTotal    = "tempcache.ops.total"
	MetricOpsErrors   = "tempcache.ops.errors"
	MetricOpsDuration = "tempcache.ops.duration_ms"
	MetricIOFailures  = "tempcache.io.failures"
	MetricItemsSwept  = "tempcache.items.swept"
)

// Metrics records store operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one finished operation.
	RecordOperation(ctx context.Context, meta StoreMeta, op string, outcome Outcome, duration time.Duration, err error)

	// RecordFailure records a swallowed filesystem or codec failure.
	RecordFailure(ctx context.Context, meta StoreMeta, op string)

	// RecordSwept adds n removed items.
	RecordSwept(ctx context.Context, meta StoreMeta, n int)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	ioFailures   metric.Int64Counter
	swept        metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		MetricOpsTotal,
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricOpsErrors,
		metric.WithDescription("Cache operations that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricOpsDuration,
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	ioFailures, err := meter.Int64Counter(
		MetricIOFailures,
		metric.WithDescription("Load or save failures absorbed by the cache"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	swept, err := meter.Int64Counter(
		MetricItemsSwept,
		metric.WithDescription("Expired items removed by sweeps"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		ioFailures:   ioFailures,
		swept:        swept,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta StoreMeta, op string, outcome Outcome, duration time.Duration, err error) {
	attrs := append(meta.attributes(op), attribute.String("cache.outcome", string(outcome)))
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordFailure(ctx context.Context, meta StoreMeta, op string) {
	m.ioFailures.Add(ctx, 1, metric.WithAttributes(meta.attributes(op)...))
}

func (m *metricsImpl) RecordSwept(ctx context.Context, meta StoreMeta, n int) {
	if n <= 0 {
		return
	}
	m.swept.Add(ctx, int64(n), metric.WithAttributes(attribute.String("cache.name", meta.Name)))
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, StoreMeta, string, Outcome, time.Duration, error) {
}
func (noopMetrics) RecordFailure(context.Context, StoreMeta, string) {}
func (noopMetrics) RecordSwept(context.Context, StoreMeta, int)      {}
