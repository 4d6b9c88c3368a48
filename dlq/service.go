package dlq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

// Notifier is told about successful requeues.
type Notifier interface {
	EmitJobRequeued(ctx context.Context, j *job.Job)
}

// Service provides dead-letter operations over a Store.
type Service struct {
	store    Store
	jobStore job.Store
	now      func() time.Time
	notifier Notifier
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier sets the requeue notifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a DLQ service. A nil clock uses time.Now.
func NewService(store Store, jobStore job.Store, now func() time.Time, opts ...ServiceOption) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{store: store, jobStore: jobStore, now: now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns dead jobs, most recently updated first.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]*job.Job, error) {
	return s.store.ListDeadJobs(ctx, opts)
}

// Get returns a single dead job. It returns ErrJobNotFound when the job
// is missing or not dead.
func (s *Service) Get(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.State != job.StateDead {
		return nil, fmt.Errorf("%w: %s is %s, not dead", queuectl.ErrJobNotFound, jobID, j.State)
	}
	return j, nil
}

// Retry requeues a dead job. It returns false when the job is missing or
// not dead, in which case nothing is changed.
func (s *Service) Retry(ctx context.Context, jobID string) (bool, error) {
	if strings.TrimSpace(jobID) == "" {
		return false, fmt.Errorf("%w: job id cannot be empty", queuectl.ErrValidation)
	}

	ok, err := s.store.RequeueDeadJob(ctx, jobID, s.now().UTC())
	if err != nil || !ok {
		return ok, err
	}

	if s.notifier != nil {
		if j, getErr := s.jobStore.GetJob(ctx, jobID); getErr == nil {
			s.notifier.EmitJobRequeued(ctx, j)
		}
	}
	return true, nil
}
