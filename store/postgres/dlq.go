package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
)

// ListDeadJobs returns dead jobs, most recently updated first.
func (s *Store) ListDeadJobs(ctx context.Context, opts dlq.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM queuectl_jobs
		WHERE state = 'dead'
		ORDER BY updated_at DESC, id ASC`
	clause, args := pageClause(opts.Limit, opts.Offset, 1)

	rows, err := s.pool.Query(ctx, query+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("queuectl/postgres: list dead jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// RequeueDeadJob moves a dead job back to pending, eligible at now.
func (s *Store) RequeueDeadJob(ctx context.Context, jobID string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs
		SET state = 'pending', attempts = 0, next_run_at = $2,
		    last_error = NULL, picked_by = NULL, updated_at = $2
		WHERE id = $1 AND state = 'dead'`,
		jobID, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("queuectl/postgres: requeue dead job %s: %w", jobID, err)
	}
	return tag.RowsAffected() > 0, nil
}
