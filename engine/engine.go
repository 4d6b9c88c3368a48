package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/backoff"
	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
	mw "github.com/xraph/queuectl/middleware"
	"github.com/xraph/queuectl/observability"
	"github.com/xraph/queuectl/store"
	"github.com/xraph/queuectl/worker"
)

// instrumentationName scopes the tracer and meter created from custom providers.
const instrumentationName = "github.com/xraph/queuectl"

// Engine is the consumer surface over a store.
// Use Build() to create one.
type Engine struct {
	store      store.Store
	config     queuectl.Config
	extensions *ext.Registry
	settings   *config.Service
	dlqService *dlq.Service
	executor   *worker.Executor
	bo         backoff.Strategy
	runner     worker.Runner
	mws        []mw.Middleware
	now        func() time.Time
	logger     *slog.Logger

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	pendingExts []ext.Extension
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithConfig replaces the runtime worker configuration.
func WithConfig(cfg queuectl.Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithClock sets the time source. Times are normalized to UTC with
// microsecond precision so every backend stores them losslessly.
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) { eng.now = now }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.pendingExts = append(eng.pendingExts, e)
	}
}

// WithMiddleware adds middleware to the engine's chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the retry backoff strategy for the engine.
// If not set, the persisted backoff_base is read on every failure and
// used as the base of a power strategy.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithRunner replaces the command runner. Defaults to worker.ShellRunner.
func WithRunner(r worker.Runner) Option {
	return func(eng *Engine) {
		eng.runner = r
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the global one.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine over s. It applies the store migrations and
// seeds the default settings for any key not yet persisted.
func Build(ctx context.Context, s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, queuectl.ErrNoStore
	}

	eng := &Engine{
		store:  s,
		config: queuectl.DefaultConfig(),
		runner: worker.ShellRunner{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(eng)
	}

	clock := eng.now
	if clock == nil {
		clock = time.Now
	}
	eng.now = func() time.Time { return clock().UTC().Truncate(time.Microsecond) }

	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("queuectl: migrate: %w", err)
	}

	eng.settings = config.NewService(s, eng.logger)
	if err := eng.settings.Init(ctx); err != nil {
		return nil, err
	}

	eng.extensions = ext.NewRegistry(eng.logger)

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter(instrumentationName + "/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)
	for _, e := range eng.pendingExts {
		eng.extensions.Register(e)
	}
	eng.pendingExts = nil

	eng.dlqService = dlq.NewService(s, s, eng.now, dlq.WithNotifier(eng.extensions))

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → user.
	// The executor appends the timeout innermost.
	allMws := make([]mw.Middleware, 0, 4+len(eng.mws))
	allMws = append(allMws,
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
	)
	allMws = append(allMws, eng.mws...)

	execOpts := []worker.ExecutorOption{
		worker.WithClock(eng.now),
		worker.WithMiddleware(allMws...),
	}
	if eng.bo != nil {
		execOpts = append(execOpts, worker.WithBackoff(eng.bo))
	}
	eng.executor = worker.NewExecutor(s, eng.settings, eng.runner, eng.extensions, eng.logger, execOpts...)

	return eng, nil
}

// Enqueue validates and persists a new pending job. The retry budget
// defaults to the persisted max_retries_default.
func (eng *Engine) Enqueue(ctx context.Context, jobID, command string, opts ...job.Option) (*job.Job, error) {
	settings, err := eng.settings.Settings(ctx)
	if err != nil {
		return nil, err
	}

	j, err := job.New(jobID, command, settings.MaxRetriesDefault, eng.now(), opts...)
	if err != nil {
		return nil, err
	}

	if err := eng.store.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	eng.extensions.EmitJobEnqueued(ctx, j)

	eng.logger.Info("job enqueued",
		slog.String("job_id", j.ID),
		slog.Int("priority", j.Priority),
		slog.Int("max_retries", j.MaxRetries),
	)
	return j, nil
}

// Get returns a job by id.
func (eng *Engine) Get(ctx context.Context, jobID string) (*job.Job, error) {
	return eng.store.GetJob(ctx, jobID)
}

// List returns jobs ordered by priority then creation time.
func (eng *Engine) List(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	if opts.State != "" && !opts.State.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", queuectl.ErrValidation, opts.State)
	}
	return eng.store.ListJobs(ctx, opts)
}

// Status is the per-state job count summary. Failed is a reporting
// bucket that no job is ever assigned, so it is always zero.
type Status struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// Total returns the number of jobs across every bucket.
func (s Status) Total() int64 {
	return s.Pending + s.Processing + s.Completed + s.Failed + s.Dead
}

// Status counts jobs per state.
func (eng *Engine) Status(ctx context.Context) (Status, error) {
	counts, err := eng.store.CountJobs(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Pending:    counts[job.StatePending],
		Processing: counts[job.StateProcessing],
		Completed:  counts[job.StateCompleted],
		Failed:     counts[job.StateFailed],
		Dead:       counts[job.StateDead],
	}, nil
}

// NewPool creates a worker pool configured from the engine's runtime
// config. opts are applied after the defaults.
func (eng *Engine) NewPool(opts ...worker.PoolOption) *worker.Pool {
	poolOpts := []worker.PoolOption{
		worker.WithPoolConcurrency(eng.config.Concurrency),
		worker.WithPollInterval(eng.config.PollInterval),
		worker.WithErrorPause(eng.config.ErrorPause),
		worker.WithPoolClock(eng.now),
	}
	poolOpts = append(poolOpts, opts...)
	return worker.NewPool(eng.store, eng.executor, eng.extensions, eng.logger, poolOpts...)
}

// RunWorkers starts n worker loops and blocks until ctx is cancelled and
// every in-flight job has finished. A non-positive n uses the configured
// concurrency.
func (eng *Engine) RunWorkers(ctx context.Context, n int) error {
	var opts []worker.PoolOption
	if n > 0 {
		opts = append(opts, worker.WithPoolConcurrency(n))
	}
	return eng.NewPool(opts...).Run(ctx)
}

// DLQ returns the dead-letter service.
func (eng *Engine) DLQ() *dlq.Service { return eng.dlqService }

// Config returns the persisted settings service.
func (eng *Engine) Config() *config.Service { return eng.settings }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Store returns the underlying store.
func (eng *Engine) Store() store.Store { return eng.store }

// Logger returns the engine's logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }

// Close releases the underlying store.
func (eng *Engine) Close() error { return eng.store.Close() }
