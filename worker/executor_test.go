package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/middleware"
	"github.com/xraph/queuectl/store/memory"
	"github.com/xraph/queuectl/worker"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// runnerFunc adapts a function to worker.Runner.
type runnerFunc func(ctx context.Context, command string) worker.Result

func (f runnerFunc) Run(ctx context.Context, command string) worker.Result { return f(ctx, command) }

// exitWith returns a runner that always exits with code.
func exitWith(code int) worker.Runner {
	return runnerFunc(func(context.Context, string) worker.Result {
		return worker.Result{ExitCode: code}
	})
}

// recorder captures lifecycle events.
type recorder struct {
	mu        sync.Mutex
	claimed   []string
	completed []string
	retrying  []int
	dead      []string
	shutdown  int
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnJobClaimed(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimed = append(r.claimed, j.PickedBy)
	return nil
}

func (r *recorder) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, j.ID)
	return nil
}

func (r *recorder) OnJobRetrying(_ context.Context, _ *job.Job, attempt int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrying = append(r.retrying, attempt)
	return nil
}

func (r *recorder) OnJobDead(_ context.Context, j *job.Job, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead = append(r.dead, j.ID)
	return nil
}

func (r *recorder) OnShutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown++
	return nil
}

type fixture struct {
	store    *memory.Store
	settings *config.Service
	events   *recorder
	registry *ext.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	svc := config.NewService(s, slog.Default())
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init config: %v", err)
	}
	events := &recorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(events)
	return &fixture{store: s, settings: svc, events: events, registry: reg}
}

func (f *fixture) executor(runner worker.Runner, opts ...worker.ExecutorOption) *worker.Executor {
	opts = append([]worker.ExecutorOption{worker.WithClock(func() time.Time { return base.Add(time.Second) })}, opts...)
	return worker.NewExecutor(f.store, f.settings, runner, f.registry, slog.Default(), opts...)
}

// claim enqueues a job and claims it, returning the processing job.
func (f *fixture) claim(t *testing.T, jobID string, opts ...job.Option) *job.Job {
	t.Helper()
	ctx := context.Background()

	j, err := job.New(jobID, "run "+jobID, 3, base, opts...)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := f.store.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := f.store.ClaimJob(ctx, "wkr_test:worker-1", base)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v, %v", claimed, err)
	}
	return claimed
}

func (f *fixture) get(t *testing.T, jobID string) *job.Job {
	t.Helper()
	j, err := f.store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get %s: %v", jobID, err)
	}
	return j
}

func TestExecutor_Success(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "ok")

	if err := f.executor(exitWith(0)).Execute(context.Background(), j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.get(t, "ok")
	if got.State != job.StateCompleted {
		t.Errorf("State = %q, want completed", got.State)
	}
	if got.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", got.Attempts)
	}
	if got.PickedBy != "" {
		t.Errorf("PickedBy = %q, want empty", got.PickedBy)
	}
	if len(f.events.completed) != 1 || f.events.completed[0] != "ok" {
		t.Errorf("completed events = %v", f.events.completed)
	}
}

func TestExecutor_FailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "flaky")

	err := f.executor(exitWith(1)).Execute(context.Background(), j)
	var exitErr *worker.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("expected ExitError{1}, got %v", err)
	}

	got := f.get(t, "flaky")
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
	if got.LastError != "exit_code=1" {
		t.Errorf("LastError = %q, want %q", got.LastError, "exit_code=1")
	}
	want := base.Add(time.Second).Add(2 * time.Second)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, want)
	}
	if len(f.events.retrying) != 1 || f.events.retrying[0] != 1 {
		t.Errorf("retrying events = %v", f.events.retrying)
	}
}

func TestExecutor_ExhaustedGoesDead(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "doomed", job.WithMaxRetries(1))

	if err := f.executor(exitWith(1)).Execute(context.Background(), j); err == nil {
		t.Fatal("expected error")
	}

	got := f.get(t, "doomed")
	if got.State != job.StateDead {
		t.Errorf("State = %q, want dead", got.State)
	}
	if got.NextRunAt != nil {
		t.Errorf("NextRunAt = %v, want nil", got.NextRunAt)
	}
	if got.LastError != "exit_code=1" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if len(f.events.dead) != 1 {
		t.Errorf("dead events = %v", f.events.dead)
	}
}

func TestExecutor_UsesConfiguredBackoffBase(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.Set(context.Background(), config.KeyBackoffBase, "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	j := f.claim(t, "j")

	_ = f.executor(exitWith(2)).Execute(context.Background(), j)

	got := f.get(t, "j")
	want := base.Add(time.Second).Add(3 * time.Second)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, want)
	}
	if got.LastError != "exit_code=2" {
		t.Errorf("LastError = %q", got.LastError)
	}
}

func TestExecutor_BackoffOverride(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "j")

	_ = f.executor(exitWith(1), worker.WithBackoff(fixedDelay(10*time.Millisecond))).Execute(context.Background(), j)

	got := f.get(t, "j")
	want := base.Add(time.Second).Add(10 * time.Millisecond)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, want)
	}
}

type fixedDelay time.Duration

func (d fixedDelay) Delay(int) time.Duration { return time.Duration(d) }

func TestExecutor_AppliesTimeout(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.Set(context.Background(), config.KeyTimeoutSeconds, "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	j := f.claim(t, "slow")

	var deadline time.Time
	runner := runnerFunc(func(ctx context.Context, _ string) worker.Result {
		deadline, _ = ctx.Deadline()
		<-ctx.Done()
		return worker.Result{ExitCode: worker.ExitTimeout, Err: ctx.Err()}
	})

	_ = f.executor(runner).Execute(context.Background(), j)

	if deadline.IsZero() {
		t.Fatal("expected the runner context to carry a deadline")
	}
	if j.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", j.Timeout)
	}
	got := f.get(t, "slow")
	if got.LastError != "exit_code=124" {
		t.Errorf("LastError = %q, want exit_code=124", got.LastError)
	}
}

func TestExecutor_PanicIsNormalized(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "boom")

	runner := runnerFunc(func(context.Context, string) worker.Result { panic("kaboom") })
	exec := f.executor(runner, worker.WithMiddleware(middleware.Recover(slog.Default())))

	if err := exec.Execute(context.Background(), j); err == nil {
		t.Fatal("expected error")
	}

	got := f.get(t, "boom")
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}
	if !strings.HasPrefix(got.LastError, "exit_code=1") || !strings.Contains(got.LastError, "kaboom") {
		t.Errorf("LastError = %q", got.LastError)
	}
}

func TestExecutor_StoreFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "j")

	// Completing a job that is no longer processing is rejected.
	if err := f.store.CompleteJob(context.Background(), "j", base); err != nil {
		t.Fatalf("complete: %v", err)
	}

	err := f.executor(exitWith(1)).Execute(context.Background(), j)
	if err == nil {
		t.Fatal("expected store error")
	}
	var exitErr *worker.ExitError
	if errors.As(err, &exitErr) {
		t.Errorf("expected a store error, got execution error %v", err)
	}

	got := f.get(t, "j")
	if got.State != job.StateCompleted {
		t.Errorf("State = %q, want completed", got.State)
	}
}

func TestExecutor_MiddlewareSliceNotMutated(t *testing.T) {
	f := newFixture(t)
	j := f.claim(t, "mw")

	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
			calls = append(calls, name)
			return next(ctx)
		}
	}

	// Spare capacity must not be overwritten by the timeout middleware.
	mws := make([]middleware.Middleware, 1, 2)
	mws[0] = tag("outer")
	spare := mws[:2]
	spare[1] = tag("caller")

	timeoutSeen := false
	runner := runnerFunc(func(ctx context.Context, _ string) worker.Result {
		_, timeoutSeen = ctx.Deadline()
		return worker.Result{}
	})
	if err := f.executor(runner, worker.WithMiddleware(mws...)).Execute(context.Background(), j); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if strings.Join(calls, ",") != "outer" {
		t.Errorf("calls = %v, want [outer]", calls)
	}
	if !timeoutSeen {
		t.Error("runner saw no deadline; timeout middleware missing")
	}
	calls = nil
	_ = spare[1](context.Background(), j, func(context.Context) error { return nil })
	if strings.Join(calls, ",") != "caller" {
		t.Errorf("spare slot overwritten: calls = %v", calls)
	}
}
