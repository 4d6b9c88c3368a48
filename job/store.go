package job

import (
	"context"
	"time"
)

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// State filters by job state. Empty means all states.
	State State
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for jobs.
type Store interface {
	// EnqueueJob persists a new pending job. It returns
	// queuectl.ErrJobAlreadyExists when the id is taken.
	EnqueueJob(ctx context.Context, j *Job) error

	// ClaimJob selects the first eligible job at now, ordered by priority
	// then created_at, and moves it to processing owned by owner. The
	// update is conditional on the job still being pending. When nothing
	// is eligible, or another caller won the race, it returns (nil, nil).
	ClaimJob(ctx context.Context, owner string, now time.Time) (*Job, error)

	// CompleteJob moves a processing job to completed and clears its
	// owner. Completing an already completed job is a no-op. Any other
	// state yields queuectl.ErrInvalidState.
	CompleteJob(ctx context.Context, jobID string, now time.Time) error

	// FailJob persists a retry-policy outcome (pending or dead) for a job
	// that is still processing. It returns queuectl.ErrInvalidState when
	// the job left processing in the meantime.
	FailJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs returns jobs ordered by priority then created_at.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs per persisted state.
	CountJobs(ctx context.Context) (map[State]int64, error)
}
