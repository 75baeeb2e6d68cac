package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/berth/ext"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.RunStarted    = (*MetricsExtension)(nil)
	_ ext.RunCompleted  = (*MetricsExtension)(nil)
	_ ext.RunFailed     = (*MetricsExtension)(nil)
	_ ext.StepRetrying  = (*MetricsExtension)(nil)
	_ ext.StepFailed    = (*MetricsExtension)(nil)
	_ ext.QueryAnswered = (*MetricsExtension)(nil)
)

const meterName = "github.com/xraph/berth/observability"

// MetricsExtension records system-wide lifecycle metrics through an OTel
// meter. Register it as an extension to track run outcomes and durations,
// cache hits, step retries and failures, and answered queries.
type MetricsExtension struct {
	RunStarted    metric.Int64Counter
	RunCompleted  metric.Int64Counter
	RunFailed     metric.Int64Counter
	RunDuration   metric.Float64Histogram
	StepRetried   metric.Int64Counter
	StepFailed    metric.Int64Counter
	QueryAnswered metric.Int64Counter
	QueryLatency  metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// The OTel API returns noop instruments alongside any error.
	m := &MetricsExtension{}
	m.RunStarted, _ = meter.Int64Counter("berth.run.started",
		metric.WithDescription("Pipeline runs started"))
	m.RunCompleted, _ = meter.Int64Counter("berth.run.completed",
		metric.WithDescription("Pipeline runs completed successfully"))
	m.RunFailed, _ = meter.Int64Counter("berth.run.failed",
		metric.WithDescription("Pipeline runs failed terminally"))
	m.RunDuration, _ = meter.Float64Histogram("berth.run.duration",
		metric.WithDescription("Duration of successful pipeline runs in seconds"),
		metric.WithUnit("s"))
	m.StepRetried, _ = meter.Int64Counter("berth.step.retried",
		metric.WithDescription("Step attempts that were retried"))
	m.StepFailed, _ = meter.Int64Counter("berth.step.failed",
		metric.WithDescription("Steps that failed terminally"))
	m.QueryAnswered, _ = meter.Int64Counter("berth.query.answered",
		metric.WithDescription("Natural-language queries answered"))
	m.QueryLatency, _ = meter.Float64Histogram("berth.query.duration",
		metric.WithDescription("Query response time in seconds"),
		metric.WithUnit("s"))
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Pipeline lifecycle hooks ────────────────────────

// OnRunStarted implements ext.RunStarted.
func (m *MetricsExtension) OnRunStarted(ctx context.Context, r *pipeline.Run) error {
	m.RunStarted.Add(ctx, 1, runAttrs(r))
	return nil
}

// OnRunCompleted implements ext.RunCompleted.
func (m *MetricsExtension) OnRunCompleted(ctx context.Context, r *pipeline.Run, elapsed time.Duration) error {
	attrs := metric.WithAttributes(
		attribute.String("operation", r.Operation.String()),
		attribute.Bool("cache_hit", r.CacheHit),
	)
	m.RunCompleted.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, elapsed.Seconds(), attrs)
	return nil
}

// OnRunFailed implements ext.RunFailed.
func (m *MetricsExtension) OnRunFailed(ctx context.Context, r *pipeline.Run, _ error) error {
	m.RunFailed.Add(ctx, 1, runAttrs(r))
	return nil
}

// OnStepRetrying implements ext.StepRetrying.
func (m *MetricsExtension) OnStepRetrying(ctx context.Context, _ *pipeline.Run, step pipeline.Step, _ int, _ time.Duration, _ error) error {
	m.StepRetried.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step.String())))
	return nil
}

// OnStepFailed implements ext.StepFailed.
func (m *MetricsExtension) OnStepFailed(ctx context.Context, _ *pipeline.Run, step pipeline.Step, _ error) error {
	m.StepFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step.String())))
	return nil
}

// ── Query hooks ─────────────────────────────────────

// OnQueryAnswered implements ext.QueryAnswered.
func (m *MetricsExtension) OnQueryAnswered(ctx context.Context, l *query.Log) error {
	attrs := metric.WithAttributes(
		attribute.String("status", l.Status),
		attribute.String("intent", l.Intent.String()),
		attribute.Bool("cached", l.Cached),
	)
	m.QueryAnswered.Add(ctx, 1, attrs)
	m.QueryLatency.Record(ctx, float64(l.ResponseTimeMS)/1000, attrs)
	return nil
}

func runAttrs(r *pipeline.Run) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("operation", r.Operation.String()))
}
