package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for berth metrics.
const meterName = "github.com/xraph/berth"

// Metrics returns middleware that records per-attempt metrics using the
// global OTel MeterProvider.
//
// Instruments:
//   - berth.step.duration (Float64Histogram): attempt time in seconds,
//     with attributes: step, operation, status ("ok" or "error")
//   - berth.step.attempts (Int64Counter): total attempts,
//     with attributes: step, operation, status ("ok" or "error")
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The OTel API returns noop instruments alongside any error.
	duration, _ := meter.Float64Histogram(
		"berth.step.duration",
		metric.WithDescription("Duration of pipeline step attempts in seconds"),
		metric.WithUnit("s"),
	)
	attempts, _ := meter.Int64Counter(
		"berth.step.attempts",
		metric.WithDescription("Total number of pipeline step attempts"),
		metric.WithUnit("{attempt}"),
	)

	return func(ctx context.Context, s *StepInfo, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("step", s.Step),
			attribute.String("operation", s.Operation),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		attempts.Add(ctx, 1, attrs)

		return err
	}
}
