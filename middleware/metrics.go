package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/queuectl/job"
)

// meterName is the instrumentation scope of the command metrics.
const meterName = "github.com/xraph/queuectl/middleware"

// Metrics records command attempts on the global MeterProvider.
//
// Instruments:
//   - queuectl.command.duration (histogram, seconds)
//   - queuectl.command.runs (counter)
//
// Both carry "outcome" (success, failure or timeout) and "exit_code".
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter is Metrics on an explicit meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Instrument errors still return usable noop instruments.
	duration, _ := meter.Float64Histogram(
		"queuectl.command.duration",
		metric.WithDescription("Wall time of shell command attempts"),
		metric.WithUnit("s"),
	)
	runs, _ := meter.Int64Counter(
		"queuectl.command.runs",
		metric.WithDescription("Shell command attempts"),
		metric.WithUnit("{run}"),
	)

	return func(ctx context.Context, _ *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)

		code := ExitCode(err)
		attrs := metric.WithAttributes(
			attribute.String("outcome", outcome(code)),
			attribute.Int("exit_code", code),
		)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
		runs.Add(ctx, 1, attrs)
		return err
	}
}
