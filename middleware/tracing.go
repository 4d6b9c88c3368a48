package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/queuectl/job"
)

// tracerName is the instrumentation scope of the command spans.
const tracerName = "github.com/xraph/queuectl/middleware"

// Tracing wraps each command attempt in a "queuectl.command.run" span on
// the global TracerProvider.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer is Tracing on an explicit tracer.
//
// Span attributes: queuectl.job.id, queuectl.job.attempt,
// queuectl.job.max_retries, queuectl.job.priority, queuectl.worker, and
// after the run, process.exit.code.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "queuectl.command.run",
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("queuectl.job.id", j.ID),
				attribute.Int("queuectl.job.attempt", j.Attempts+1),
				attribute.Int("queuectl.job.max_retries", j.MaxRetries),
				attribute.Int("queuectl.job.priority", j.Priority),
				attribute.String("queuectl.worker", j.PickedBy),
			),
		)
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.Int("process.exit.code", ExitCode(err)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}
