package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/retry"
	"github.com/xraph/queuectl/store/memory"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	ids []string
}

func (n *recordingNotifier) EmitJobRequeued(_ context.Context, j *job.Job) {
	n.ids = append(n.ids, j.ID)
}

// killJob enqueues a job with a one-attempt budget and fails it once.
func killJob(t *testing.T, s *memory.Store, jobID string, at time.Time) {
	t.Helper()
	ctx := context.Background()

	j, err := job.New(jobID, "false", 1, at)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimJob(ctx, "worker-1", at)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimJob = %v, %v", claimed, err)
	}
	retry.NewPolicy(nil).Apply(claimed, "exit_code=1", at)
	if err := s.FailJob(ctx, claimed); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
}

func TestService_ListNewestFirst(t *testing.T) {
	s := memory.New()
	svc := dlq.NewService(s, s, nil)

	killJob(t, s, "old", base)
	killJob(t, s, "new", base.Add(time.Minute))

	got, err := svc.List(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Errorf("order = [%s %s], want [new old]", got[0].ID, got[1].ID)
	}
}

func TestService_RetryResetsJob(t *testing.T) {
	s := memory.New()
	retryAt := base.Add(time.Hour)
	n := &recordingNotifier{}
	svc := dlq.NewService(s, s, func() time.Time { return retryAt }, dlq.WithNotifier(n))
	ctx := context.Background()

	killJob(t, s, "j", base)

	ok, err := svc.Retry(ctx, "j")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !ok {
		t.Fatal("Retry returned false for a dead job")
	}

	j, err := s.GetJob(ctx, "j")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.State != job.StatePending {
		t.Errorf("State = %q, want pending", j.State)
	}
	if j.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", j.Attempts)
	}
	if j.LastError != "" || j.PickedBy != "" {
		t.Errorf("LastError/PickedBy = %q/%q, want empty", j.LastError, j.PickedBy)
	}
	if j.NextRunAt == nil || !j.NextRunAt.Equal(retryAt) {
		t.Errorf("NextRunAt = %v, want %v", j.NextRunAt, retryAt)
	}
	if len(n.ids) != 1 || n.ids[0] != "j" {
		t.Errorf("notified = %v, want [j]", n.ids)
	}
}

func TestService_RetryNotDead(t *testing.T) {
	s := memory.New()
	n := &recordingNotifier{}
	svc := dlq.NewService(s, s, nil, dlq.WithNotifier(n))
	ctx := context.Background()

	j, _ := job.New("alive", "true", 3, base)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	for _, jobID := range []string{"alive", "missing"} {
		ok, err := svc.Retry(ctx, jobID)
		if err != nil {
			t.Fatalf("Retry(%s): %v", jobID, err)
		}
		if ok {
			t.Errorf("Retry(%s) = true, want false", jobID)
		}
	}

	got, _ := s.GetJob(ctx, "alive")
	if got.State != job.StatePending || !got.UpdatedAt.Equal(base) {
		t.Errorf("non-dead job was mutated: %+v", got)
	}
	if len(n.ids) != 0 {
		t.Errorf("notified = %v, want none", n.ids)
	}
}

func TestService_RetryEmptyID(t *testing.T) {
	s := memory.New()
	svc := dlq.NewService(s, s, nil)

	if _, err := svc.Retry(context.Background(), " "); !errors.Is(err, queuectl.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestService_Get(t *testing.T) {
	s := memory.New()
	svc := dlq.NewService(s, s, nil)
	ctx := context.Background()

	killJob(t, s, "dead", base)
	j, _ := job.New("alive", "true", 3, base)
	_ = s.EnqueueJob(ctx, j)

	got, err := svc.Get(ctx, "dead")
	if err != nil {
		t.Fatalf("Get(dead): %v", err)
	}
	if got.LastError != "exit_code=1" {
		t.Errorf("LastError = %q, want exit_code=1", got.LastError)
	}

	for _, jobID := range []string{"alive", "missing"} {
		if _, err := svc.Get(ctx, jobID); !errors.Is(err, queuectl.ErrJobNotFound) {
			t.Errorf("Get(%s) err = %v, want ErrJobNotFound", jobID, err)
		}
	}
}
