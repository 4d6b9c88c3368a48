package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
)

// ListDeadJobs returns dead jobs, most recently updated first.
func (s *Store) ListDeadJobs(ctx context.Context, opts dlq.ListOpts) ([]*job.Job, error) {
	var models []jobModel
	q := s.db.NewSelect().Model(&models).
		Where("state = ?", string(job.StateDead)).
		OrderExpr("updated_at DESC, id ASC")
	q = s.page(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("queuectl/bun: list dead jobs: %w", err)
	}
	return fromJobModels(models), nil
}

// RequeueDeadJob moves a dead job back to pending, eligible at now.
func (s *Store) RequeueDeadJob(ctx context.Context, jobID string, now time.Time) (bool, error) {
	now = now.UTC()
	res, err := s.db.NewUpdate().
		TableExpr(jobsTable).
		Set("state = ?", string(job.StatePending)).
		Set("attempts = 0").
		Set("next_run_at = ?", now).
		Set("last_error = NULL").
		Set("picked_by = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", jobID).
		Where("state = ?", string(job.StateDead)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("queuectl/bun: requeue dead job %s: %w", jobID, err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows > 0, nil
}
