package ext

import (
	"context"
	"time"

	"github.com/xraph/queuectl/job"
)

// Extension is implemented by everything passed to Registry.Register.
// Hooks are opted into by also implementing the interfaces below.
type Extension interface {
	Name() string
}

// JobEnqueued fires once a new job is stored as pending.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobClaimed fires after a worker wins the claim, before the command runs.
// j.Attempts still holds the count of finished attempts.
type JobClaimed interface {
	OnJobClaimed(ctx context.Context, j *job.Job) error
}

// JobCompleted fires after the command exited 0 and the job was stored
// as completed.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying fires after a failed attempt was stored as pending again.
// attempt is the number of the attempt that failed.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobDead fires when the retry budget is spent and the job is stored as dead.
type JobDead interface {
	OnJobDead(ctx context.Context, j *job.Job, err error) error
}

// JobRequeued fires after a dead job was reset to pending from the DLQ.
type JobRequeued interface {
	OnJobRequeued(ctx context.Context, j *job.Job) error
}

// Shutdown fires once a worker pool has drained.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
