// Package storetest is a conformance suite run against every store.Store
// backend. Each backend's test file calls Run with a constructor that
// returns a fresh, migrated store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/retry"
	"github.com/xraph/queuectl/store"
)

// Base is the reference time used by the suite. Backends store at least
// microsecond precision, so every derived time is a whole second offset.
var Base = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// Factory returns a fresh, migrated store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"EnqueueAndGet", testEnqueueAndGet},
		{"EnqueueDuplicate", testEnqueueDuplicate},
		{"GetMissing", testGetMissing},
		{"ClaimOrder", testClaimOrder},
		{"ClaimWidePriority", testClaimWidePriority},
		{"ClaimSkipsFuture", testClaimSkipsFuture},
		{"ClaimSkipsNonPending", testClaimSkipsNonPending},
		{"ClaimConcurrent", testClaimConcurrent},
		{"Complete", testComplete},
		{"CompleteInvalid", testCompleteInvalid},
		{"FailRetry", testFailRetry},
		{"FailDead", testFailDead},
		{"FailNotProcessing", testFailNotProcessing},
		{"ListJobs", testListJobs},
		{"CountJobs", testCountJobs},
		{"DeadLetterOrder", testDeadLetterOrder},
		{"RequeueDeadJob", testRequeueDeadJob},
		{"RequeueNotDead", testRequeueNotDead},
		{"ConfigSeedAndSet", testConfigSeedAndSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func mustEnqueue(t *testing.T, s store.Store, jobID string, at time.Time, opts ...job.Option) *job.Job {
	t.Helper()

	j, err := job.New(jobID, "echo "+jobID, 3, at, opts...)
	if err != nil {
		t.Fatalf("job.New(%s): %v", jobID, err)
	}
	if err := s.EnqueueJob(context.Background(), j); err != nil {
		t.Fatalf("EnqueueJob(%s): %v", jobID, err)
	}
	return j
}

func mustClaim(t *testing.T, s store.Store, owner string, at time.Time) *job.Job {
	t.Helper()

	j, err := s.ClaimJob(context.Background(), owner, at)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if j == nil {
		t.Fatal("ClaimJob returned no job")
	}
	return j
}

func assertNoClaim(t *testing.T, s store.Store, at time.Time) {
	t.Helper()

	j, err := s.ClaimJob(context.Background(), "w", at)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if j != nil {
		t.Fatalf("ClaimJob returned %q, want none", j.ID)
	}
}

// kill drives a one-attempt job to dead at the given time.
func kill(t *testing.T, s store.Store, jobID string, at time.Time) {
	t.Helper()

	mustEnqueue(t, s, jobID, at, job.WithMaxRetries(1))
	claimed := mustClaim(t, s, "w", at)
	if claimed.ID != jobID {
		t.Fatalf("claimed %q, want %q", claimed.ID, jobID)
	}
	retry.NewPolicy(nil).Apply(claimed, "exit_code=1", at)
	if err := s.FailJob(context.Background(), claimed); err != nil {
		t.Fatalf("FailJob(%s): %v", jobID, err)
	}
}

func ids(jobs []*job.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

func testEnqueueAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := mustEnqueue(t, s, "job-1", Base, job.WithPriority(4), job.WithMaxRetries(5))

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ID != in.ID || got.Command != in.Command {
		t.Errorf("got %q/%q, want %q/%q", got.ID, got.Command, in.ID, in.Command)
	}
	if got.State != job.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}
	if got.Priority != 4 || got.MaxRetries != 5 || got.Attempts != 0 {
		t.Errorf("Priority/MaxRetries/Attempts = %d/%d/%d, want 4/5/0",
			got.Priority, got.MaxRetries, got.Attempts)
	}
	if !got.CreatedAt.Equal(Base) || !got.UpdatedAt.Equal(Base) {
		t.Errorf("CreatedAt/UpdatedAt = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, Base)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(Base) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, Base)
	}
	if got.LastError != "" || got.PickedBy != "" {
		t.Errorf("LastError/PickedBy = %q/%q, want empty", got.LastError, got.PickedBy)
	}
}

func testEnqueueDuplicate(t *testing.T, s store.Store) {
	mustEnqueue(t, s, "dup", Base)

	j, err := job.New("dup", "echo again", 3, Base)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	err = s.EnqueueJob(context.Background(), j)
	if !errors.Is(err, queuectl.ErrJobAlreadyExists) {
		t.Fatalf("err = %v, want ErrJobAlreadyExists", err)
	}

	got, err := s.GetJob(context.Background(), "dup")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Command != "echo dup" {
		t.Errorf("Command = %q, original overwritten", got.Command)
	}
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetJob(context.Background(), "nope")
	if !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func testClaimOrder(t *testing.T, s store.Store) {
	mustEnqueue(t, s, "A", Base, job.WithPriority(1))
	mustEnqueue(t, s, "B", Base.Add(time.Second), job.WithPriority(1))
	mustEnqueue(t, s, "C", Base.Add(2*time.Second), job.WithPriority(0))

	now := Base.Add(time.Minute)
	var got []string
	for range 3 {
		got = append(got, mustClaim(t, s, "w", now).ID)
	}
	if want := []string{"C", "A", "B"}; !equalIDs(got, want) {
		t.Errorf("claim order = %v, want %v", got, want)
	}
	assertNoClaim(t, s, now)
}

func testClaimSkipsFuture(t *testing.T, s store.Store) {
	mustEnqueue(t, s, "later", Base, job.WithDelay(time.Hour))

	assertNoClaim(t, s, Base.Add(59*time.Minute))

	j := mustClaim(t, s, "w", Base.Add(time.Hour))
	if j.ID != "later" {
		t.Errorf("claimed %q, want later", j.ID)
	}
}

func testClaimSkipsNonPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "done", Base)
	claimed := mustClaim(t, s, "w", Base)
	if err := s.CompleteJob(ctx, claimed.ID, Base); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	kill(t, s, "dead", Base.Add(time.Second))

	assertNoClaim(t, s, Base.Add(time.Hour))
}

func testClaimWidePriority(t *testing.T, s store.Store) {
	ctx := context.Background()
	const wide = 1 << 40

	mustEnqueue(t, s, "low", Base, job.WithPriority(wide))
	mustEnqueue(t, s, "high", Base.Add(time.Second), job.WithPriority(-wide))

	got, err := s.GetJob(ctx, "low")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Priority != wide {
		t.Errorf("Priority = %d, want %d", got.Priority, wide)
	}
	if c := mustClaim(t, s, "w", Base.Add(time.Minute)); c.ID != "high" {
		t.Errorf("claimed %q, want high", c.ID)
	}
}

func testClaimConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "only", Base)

	const workers = 8
	var (
		g      errgroup.Group
		mu     sync.Mutex
		winner []string
	)
	for range workers {
		g.Go(func() error {
			j, err := s.ClaimJob(ctx, "w", Base)
			if err != nil || j == nil {
				return err
			}
			mu.Lock()
			winner = append(winner, j.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if len(winner) != 1 {
		t.Fatalf("winners = %v, want exactly one", winner)
	}

	got, err := s.GetJob(ctx, "only")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateProcessing || got.PickedBy != "w" {
		t.Errorf("State/PickedBy = %q/%q, want processing/w", got.State, got.PickedBy)
	}
}

func testComplete(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "c", Base)
	claimed := mustClaim(t, s, "worker-1", Base)
	if claimed.State != job.StateProcessing || claimed.PickedBy != "worker-1" {
		t.Fatalf("claimed State/PickedBy = %q/%q", claimed.State, claimed.PickedBy)
	}

	doneAt := Base.Add(3 * time.Second)
	if err := s.CompleteJob(ctx, "c", doneAt); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	// Second completion is a no-op.
	if err := s.CompleteJob(ctx, "c", doneAt.Add(time.Second)); err != nil {
		t.Fatalf("CompleteJob again: %v", err)
	}

	got, err := s.GetJob(ctx, "c")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateCompleted {
		t.Errorf("State = %q, want completed", got.State)
	}
	if got.PickedBy != "" {
		t.Errorf("PickedBy = %q, want empty", got.PickedBy)
	}
	if !got.UpdatedAt.Equal(doneAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, doneAt)
	}
}

func testCompleteInvalid(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "pending", Base)

	if err := s.CompleteJob(ctx, "pending", Base); !errors.Is(err, queuectl.ErrInvalidState) {
		t.Errorf("complete pending: err = %v, want ErrInvalidState", err)
	}
	if err := s.CompleteJob(ctx, "missing", Base); !errors.Is(err, queuectl.ErrJobNotFound) {
		t.Errorf("complete missing: err = %v, want ErrJobNotFound", err)
	}
}

func testFailRetry(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "r", Base)
	claimed := mustClaim(t, s, "w", Base)

	failAt := Base.Add(time.Second)
	d := retry.NewPolicy(nil).Apply(claimed, "exit_code=7", failAt)
	if d.Dead() {
		t.Fatal("first failure of a 3-retry job is dead")
	}
	if err := s.FailJob(ctx, claimed); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, err := s.GetJob(ctx, "r")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StatePending || got.Attempts != 1 {
		t.Errorf("State/Attempts = %q/%d, want pending/1", got.State, got.Attempts)
	}
	if got.LastError != "exit_code=7" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if got.PickedBy != "" {
		t.Errorf("PickedBy = %q, want empty", got.PickedBy)
	}
	wantNext := failAt.Add(2 * time.Second)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(wantNext) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, wantNext)
	}

	assertNoClaim(t, s, wantNext.Add(-time.Second))
	if j := mustClaim(t, s, "w", wantNext); j.Attempts != 1 {
		t.Errorf("reclaimed Attempts = %d, want 1", j.Attempts)
	}
}

func testFailDead(t *testing.T, s store.Store) {
	ctx := context.Background()
	kill(t, s, "d", Base)

	got, err := s.GetJob(ctx, "d")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateDead || got.Attempts != 1 {
		t.Errorf("State/Attempts = %q/%d, want dead/1", got.State, got.Attempts)
	}
	if got.NextRunAt != nil {
		t.Errorf("NextRunAt = %v, want nil", got.NextRunAt)
	}
	if got.PickedBy != "" {
		t.Errorf("PickedBy = %q, want empty", got.PickedBy)
	}
	assertNoClaim(t, s, Base.Add(24*time.Hour))
}

func testFailNotProcessing(t *testing.T, s store.Store) {
	in := mustEnqueue(t, s, "p", Base)

	retry.NewPolicy(nil).Apply(in, "boom", Base)
	if err := s.FailJob(context.Background(), in); !errors.Is(err, queuectl.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}

	got, err := s.GetJob(context.Background(), "p")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Attempts != 0 || got.LastError != "" {
		t.Errorf("pending job mutated: attempts=%d last_error=%q", got.Attempts, got.LastError)
	}
}

func testListJobs(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "A", Base, job.WithPriority(2))
	mustEnqueue(t, s, "B", Base.Add(time.Second), job.WithPriority(1))
	mustEnqueue(t, s, "C", Base.Add(2*time.Second), job.WithPriority(1))
	mustClaim(t, s, "w", Base.Add(time.Minute)) // B

	all, err := s.ListJobs(ctx, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if want := []string{"B", "C", "A"}; !equalIDs(ids(all), want) {
		t.Errorf("ListJobs = %v, want %v", ids(all), want)
	}

	pending, err := s.ListJobs(ctx, job.ListOpts{State: job.StatePending})
	if err != nil {
		t.Fatalf("ListJobs(pending): %v", err)
	}
	if want := []string{"C", "A"}; !equalIDs(ids(pending), want) {
		t.Errorf("ListJobs(pending) = %v, want %v", ids(pending), want)
	}

	paged, err := s.ListJobs(ctx, job.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobs(paged): %v", err)
	}
	if want := []string{"C"}; !equalIDs(ids(paged), want) {
		t.Errorf("ListJobs(paged) = %v, want %v", ids(paged), want)
	}

	failed, err := s.ListJobs(ctx, job.ListOpts{State: job.StateFailed})
	if err != nil {
		t.Fatalf("ListJobs(failed): %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("ListJobs(failed) = %v, want empty", ids(failed))
	}
}

func testCountJobs(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.CountJobs(ctx)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	for st, n := range empty {
		if n != 0 {
			t.Errorf("empty store count[%s] = %d", st, n)
		}
	}

	// The dead job is killed first, while it is the only eligible one.
	kill(t, s, "dead", Base.Add(-time.Minute))
	mustEnqueue(t, s, "p1", Base)
	mustEnqueue(t, s, "p2", Base.Add(time.Second))
	mustEnqueue(t, s, "run", Base.Add(-time.Second), job.WithPriority(-1))
	if got := mustClaim(t, s, "w", Base.Add(time.Minute)); got.ID != "run" {
		t.Fatalf("claimed %q, want run", got.ID)
	}

	counts, err := s.CountJobs(ctx)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	want := map[job.State]int64{
		job.StatePending:    2,
		job.StateProcessing: 1,
		job.StateCompleted:  0,
		job.StateFailed:     0,
		job.StateDead:       1,
	}
	for st, n := range want {
		if counts[st] != n {
			t.Errorf("count[%s] = %d, want %d", st, counts[st], n)
		}
	}
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

func testDeadLetterOrder(t *testing.T, s store.Store) {
	kill(t, s, "first", Base)
	kill(t, s, "second", Base.Add(time.Minute))
	kill(t, s, "third", Base.Add(2*time.Minute))

	got, err := s.ListDeadJobs(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatalf("ListDeadJobs: %v", err)
	}
	if want := []string{"third", "second", "first"}; !equalIDs(ids(got), want) {
		t.Errorf("ListDeadJobs = %v, want %v", ids(got), want)
	}

	page, err := s.ListDeadJobs(context.Background(), dlq.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListDeadJobs(paged): %v", err)
	}
	if want := []string{"second"}; !equalIDs(ids(page), want) {
		t.Errorf("ListDeadJobs(paged) = %v, want %v", ids(page), want)
	}
}

func testRequeueDeadJob(t *testing.T, s store.Store) {
	ctx := context.Background()
	kill(t, s, "d", Base)

	at := Base.Add(time.Hour)
	ok, err := s.RequeueDeadJob(ctx, "d", at)
	if err != nil {
		t.Fatalf("RequeueDeadJob: %v", err)
	}
	if !ok {
		t.Fatal("RequeueDeadJob = false, want true")
	}

	got, err := s.GetJob(ctx, "d")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StatePending || got.Attempts != 0 {
		t.Errorf("State/Attempts = %q/%d, want pending/0", got.State, got.Attempts)
	}
	if got.LastError != "" || got.PickedBy != "" {
		t.Errorf("LastError/PickedBy = %q/%q, want empty", got.LastError, got.PickedBy)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(at) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, at)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, at)
	}

	dead, err := s.ListDeadJobs(ctx, dlq.ListOpts{})
	if err != nil {
		t.Fatalf("ListDeadJobs: %v", err)
	}
	if len(dead) != 0 {
		t.Errorf("ListDeadJobs = %v, want empty", ids(dead))
	}

	if j := mustClaim(t, s, "w", at); j.ID != "d" {
		t.Errorf("claimed %q, want d", j.ID)
	}
}

func testRequeueNotDead(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustEnqueue(t, s, "alive", Base)

	for _, jobID := range []string{"alive", "missing"} {
		ok, err := s.RequeueDeadJob(ctx, jobID, Base.Add(time.Hour))
		if err != nil {
			t.Fatalf("RequeueDeadJob(%s): %v", jobID, err)
		}
		if ok {
			t.Errorf("RequeueDeadJob(%s) = true, want false", jobID)
		}
	}

	got, err := s.GetJob(ctx, "alive")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.UpdatedAt.Equal(Base) {
		t.Errorf("UpdatedAt = %v, want untouched %v", got.UpdatedAt, Base)
	}
}

// ──────────────────────────────────────────────────
// Config Store
// ──────────────────────────────────────────────────

func testConfigSeedAndSet(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.SeedConfig(ctx, config.Defaults()); err != nil {
		t.Fatalf("SeedConfig: %v", err)
	}
	if err := s.SetConfig(ctx, config.KeyBackoffBase, "5"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	// Reseeding keeps the override.
	if err := s.SeedConfig(ctx, config.Defaults()); err != nil {
		t.Fatalf("SeedConfig again: %v", err)
	}

	got, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	want := map[string]string{
		config.KeyBackoffBase:       "5",
		config.KeyMaxRetriesDefault: "3",
		config.KeyTimeoutSeconds:    "20",
	}
	if len(got) != len(want) {
		t.Errorf("GetConfig = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("config[%s] = %q, want %q", k, got[k], v)
		}
	}
}
