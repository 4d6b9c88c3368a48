package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/id"
	"github.com/xraph/queuectl/job"
)

// Pool defaults.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultErrorPause   = time.Second
)

// Pool manages a set of independent worker loops that claim jobs and
// execute them through the Executor.
type Pool struct {
	store        job.Store
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	pollInterval time.Duration
	errorPause   time.Duration
	workerID     id.WorkerID
	now          func() time.Time
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker loops.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets how long an idle worker sleeps before claiming again.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithErrorPause sets how long a worker pauses after an unexpected fault.
func WithErrorPause(d time.Duration) PoolOption {
	return func(p *Pool) { p.errorPause = d }
}

// WithPoolClock sets the time source used to decide job eligibility.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// NewPool creates a worker pool.
func NewPool(
	store job.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	p := &Pool{
		store:        store,
		executor:     executor,
		extensions:   extensions,
		concurrency:  1,
		pollInterval: DefaultPollInterval,
		errorPause:   DefaultErrorPause,
		workerID:     id.NewWorkerID(),
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

// WorkerID returns the pool's unique identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Owner returns the picked_by value used by the worker loop named name.
func (p *Pool) Owner(name string) string { return p.workerID.String() + ":" + name }

// Run starts the worker loops and blocks until ctx is done and every loop
// has returned. Cancellation is observed between iterations only: a job
// that is executing when ctx is cancelled runs to completion first.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	var g errgroup.Group
	for i := range p.concurrency {
		name := "worker-" + strconv.Itoa(i+1)
		g.Go(func() error {
			p.loop(ctx, name)
			return nil
		})
	}
	err := g.Wait()

	p.extensions.EmitShutdown(context.WithoutCancel(ctx))
	p.logger.Info("worker pool stopped", slog.String("worker_id", p.workerID.String()))
	return err
}

// Start launches Run in the background. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := p.Run(runCtx); err != nil {
			p.logger.Error("worker pool exited", slog.String("error", err.Error()))
		}
	}(p.done)

	return nil
}

// Stop signals every loop to exit and waits for in-flight jobs to finish.
// If ctx is done first, Stop returns its error and the loops keep draining
// in the background.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, jobs still running")
		return ctx.Err()
	}
}

// loop is run by each worker goroutine.
func (p *Pool) loop(ctx context.Context, name string) {
	owner := p.Owner(name)
	logger := p.logger.With(slog.String("worker", owner))

	for {
		if ctx.Err() != nil {
			return
		}

		claimed, err := p.runOnce(context.WithoutCancel(ctx), owner)
		switch {
		case err != nil:
			logger.Error("worker iteration failed", slog.String("error", err.Error()))
			p.sleep(ctx, p.errorPause)
		case !claimed:
			p.sleep(ctx, p.pollInterval)
		}
	}
}

// runOnce claims and executes at most one job. A panic anywhere in the
// iteration is returned as an error.
func (p *Pool) runOnce(ctx context.Context, owner string) (claimed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	j, err := p.store.ClaimJob(ctx, owner, p.now().UTC())
	if err != nil {
		// A store failure during claim counts as an empty cycle.
		p.logger.Error("claim failed",
			slog.String("worker", owner),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	if j == nil {
		return false, nil
	}

	p.extensions.EmitJobClaimed(ctx, j)

	if execErr := p.executor.Execute(ctx, j); execErr != nil {
		p.logger.Debug("job execution failed",
			slog.String("job_id", j.ID),
			slog.String("worker", owner),
			slog.String("error", execErr.Error()),
		)
	}
	return true, nil
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
