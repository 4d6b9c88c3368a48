package dlq

import (
	"context"
	"time"

	"github.com/xraph/queuectl/job"
)

// ListOpts controls pagination for DLQ list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for the dead-letter set.
type Store interface {
	// ListDeadJobs returns dead jobs ordered by updated_at descending.
	ListDeadJobs(ctx context.Context, opts ListOpts) ([]*job.Job, error)

	// RequeueDeadJob moves a dead job back to pending, eligible at now,
	// with zero attempts and no error or owner. It reports false, with no
	// mutation, when the job does not exist or is not dead.
	RequeueDeadJob(ctx context.Context, jobID string, now time.Time) (bool, error)
}
