package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for berth tracing.
const tracerName = "github.com/xraph/berth"

// Tracing returns middleware that wraps each step attempt in an
// OpenTelemetry span. Without a configured TracerProvider the global noop
// tracer is used.
//
// Span attributes: berth.workflow_id, berth.container_id, berth.operation,
// berth.step, berth.attempt.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, s *StepInfo, next Handler) error {
		ctx, span := tracer.Start(ctx, "berth.step."+s.Step,
			trace.WithAttributes(
				attribute.String("berth.workflow_id", s.WorkflowID),
				attribute.String("berth.container_id", s.ContainerID),
				attribute.String("berth.operation", s.Operation),
				attribute.String("berth.step", s.Step),
				attribute.Int("berth.attempt", s.Attempt),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
