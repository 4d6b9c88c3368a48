package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/queuectl/backoff"
	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/middleware"
	"github.com/xraph/queuectl/retry"
)

// SettingsLoader provides the persisted queue settings. It is consulted
// once per execution so changes apply without restarting workers.
type SettingsLoader interface {
	Settings(ctx context.Context) (config.Settings, error)
}

// Executor runs a single claimed job through middleware and the Runner,
// then persists the outcome and emits lifecycle events.
type Executor struct {
	store      job.Store
	settings   SettingsLoader
	runner     Runner
	extensions *ext.Registry
	backoff    backoff.Strategy
	mw         middleware.Middleware
	now        func() time.Time
	logger     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackoff overrides the backoff strategy. By default the strategy is
// Power with the configured backoff_base.
func WithBackoff(s backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.backoff = s }
}

// WithMiddleware sets the middleware wrapped around every execution.
// The execution timeout is always applied innermost.
func WithMiddleware(mws ...middleware.Middleware) ExecutorOption {
	return func(e *Executor) {
		chain := append(slices.Clip(mws), middleware.Timeout(e.logger))
		e.mw = middleware.Chain(chain...)
	}
}

// WithClock sets the time source used for state transitions.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	store job.Store,
	settings SettingsLoader,
	runner Runner,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	e := &Executor{
		store:      store,
		settings:   settings,
		runner:     runner,
		extensions: extensions,
		now:        time.Now,
		logger:     logger,
	}
	e.mw = middleware.Timeout(logger)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a processing job and records the result.
// On success: marks completed, emits JobCompleted.
// On failure with retries remaining: back to pending after a backoff delay,
// emits JobRetrying.
// On failure with retries exhausted: marks dead, emits JobDead.
//
// The returned error is the execution failure or a store failure. In
// both cases the job has been handled as far as the store allows.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	settings, err := e.settings.Settings(ctx)
	if err != nil {
		e.logger.Warn("using default settings",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	j.Timeout = settings.Timeout

	start := time.Now()

	terminal := func(ctx context.Context) error {
		res := e.runner.Run(ctx, j.Command)
		e.logOutput(j, res)
		if !res.OK() {
			return &ExitError{Code: res.ExitCode}
		}
		return nil
	}

	err = e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	now := e.now().UTC()
	if err != nil {
		return e.handleFailure(ctx, j, settings, err, now)
	}
	return e.handleSuccess(ctx, j, now, elapsed)
}

// handleSuccess marks the job as completed and emits the lifecycle event.
func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	if err := e.store.CompleteJob(ctx, j.ID, now); err != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	j.State = job.StateCompleted
	j.PickedBy = ""
	j.UpdatedAt = now

	e.extensions.EmitJobCompleted(ctx, j, elapsed)

	e.logger.Info("job completed",
		slog.String("job_id", j.ID),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// handleFailure applies the retry policy and persists the decision.
func (e *Executor) handleFailure(ctx context.Context, j *job.Job, settings config.Settings, execErr error, now time.Time) error {
	var exitErr *ExitError
	if !errors.As(execErr, &exitErr) {
		// Faults raised by middleware, such as a recovered panic.
		execErr = fmt.Errorf("%w: %v", &ExitError{Code: ExitFault}, execErr)
	}

	policy := retry.NewPolicy(e.strategy(settings))
	decision := policy.Apply(j, execErr.Error(), now)

	if err := e.store.FailJob(ctx, j); err != nil {
		e.logger.Error("failed to update job after failure",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if decision.Dead() {
		e.extensions.EmitJobDead(ctx, j, execErr)
		e.logger.Warn("job moved to dead letter queue after exhausting retries",
			slog.String("job_id", j.ID),
			slog.Int("attempts", j.Attempts),
			slog.String("error", j.LastError),
		)
		return execErr
	}

	e.extensions.EmitJobRetrying(ctx, j, decision.Attempt, *decision.NextRunAt)
	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID),
		slog.Int("attempt", decision.Attempt),
		slog.Int("max_retries", j.MaxRetries),
		slog.Duration("delay", decision.Delay),
	)
	return fmt.Errorf("job %s retry %d/%d: %w", j.ID, decision.Attempt, j.MaxRetries, execErr)
}

func (e *Executor) strategy(settings config.Settings) backoff.Strategy {
	if e.backoff != nil {
		return e.backoff
	}
	return backoff.NewPower(settings.BackoffBase, 0)
}

func (e *Executor) logOutput(j *job.Job, res Result) {
	attrs := []any{
		slog.String("job_id", j.ID),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("duration", res.Duration),
	}
	if res.Stdout != "" {
		attrs = append(attrs, slog.String("stdout", res.Stdout))
	}
	if res.Stderr != "" {
		attrs = append(attrs, slog.String("stderr", res.Stderr))
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	e.logger.Debug("command finished", attrs...)
}
