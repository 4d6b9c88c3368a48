package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/xraph/queuectl/observability"

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobEnqueued  = (*MetricsExtension)(nil)
	_ ext.JobClaimed   = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobRetrying  = (*MetricsExtension)(nil)
	_ ext.JobDead      = (*MetricsExtension)(nil)
	_ ext.JobRequeued  = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics as OTel counters.
// Register it as an extension to track enqueue rates, claims,
// completions, retries, dead jobs and requeues.
type MetricsExtension struct {
	JobEnqueued  metric.Int64Counter
	JobClaimed   metric.Int64Counter
	JobCompleted metric.Int64Counter
	JobRetried   metric.Int64Counter
	JobDead      metric.Int64Counter
	JobRequeued  metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	return &MetricsExtension{
		JobEnqueued:  counter(meter, "queuectl.job.enqueued", "Jobs accepted into the queue"),
		JobClaimed:   counter(meter, "queuectl.job.claimed", "Jobs claimed by a worker"),
		JobCompleted: counter(meter, "queuectl.job.completed", "Jobs that finished successfully"),
		JobRetried:   counter(meter, "queuectl.job.retried", "Failed attempts scheduled for retry"),
		JobDead:      counter(meter, "queuectl.job.dead", "Jobs that exhausted their retries"),
		JobRequeued:  counter(meter, "queuectl.job.requeued", "Dead jobs moved back to pending"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name,
		metric.WithDescription(desc),
		metric.WithUnit("{job}"),
	)
	_ = err // noop fallback guaranteed by OTel API contract
	return c
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, _ *job.Job) error {
	m.JobEnqueued.Add(ctx, 1)
	return nil
}

// OnJobClaimed implements ext.JobClaimed.
func (m *MetricsExtension) OnJobClaimed(ctx context.Context, _ *job.Job) error {
	m.JobClaimed.Add(ctx, 1)
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, _ *job.Job, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1)
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, _ *job.Job, _ int, _ time.Time) error {
	m.JobRetried.Add(ctx, 1)
	return nil
}

// OnJobDead implements ext.JobDead.
func (m *MetricsExtension) OnJobDead(ctx context.Context, _ *job.Job, _ error) error {
	m.JobDead.Add(ctx, 1)
	return nil
}

// OnJobRequeued implements ext.JobRequeued.
func (m *MetricsExtension) OnJobRequeued(ctx context.Context, _ *job.Job) error {
	m.JobRequeued.Add(ctx, 1)
	return nil
}
