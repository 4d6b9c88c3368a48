package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return queuectl.ErrJobAlreadyExists
		}
		return fmt.Errorf("queuectl/bun: enqueue job: %w", err)
	}
	return nil
}

// ClaimJob selects the first eligible job, then moves it to processing
// with an update conditional on it still being pending. A lost race
// returns (nil, nil).
func (s *Store) ClaimJob(ctx context.Context, owner string, now time.Time) (*job.Job, error) {
	now = now.UTC()

	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("state = ?", string(job.StatePending)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("next_run_at IS NULL").WhereOr("next_run_at <= ?", now)
		}).
		OrderExpr("priority ASC, created_at ASC, id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // nil job means nothing eligible
		}
		return nil, fmt.Errorf("queuectl/bun: select claim candidate: %w", err)
	}

	res, err := s.db.NewUpdate().
		TableExpr(jobsTable).
		Set("state = ?", string(job.StateProcessing)).
		Set("picked_by = ?", owner).
		Set("updated_at = ?", now).
		Where("id = ?", m.ID).
		Where("state = ?", string(job.StatePending)).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("queuectl/bun: claim job %s: %w", m.ID, err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return nil, nil //nolint:nilnil // another worker won the race
	}

	m.State = string(job.StateProcessing)
	m.PickedBy = owner
	m.UpdatedAt = now
	return fromJobModel(m), nil
}

// CompleteJob moves a processing job to completed.
func (s *Store) CompleteJob(ctx context.Context, jobID string, now time.Time) error {
	res, err := s.db.NewUpdate().
		TableExpr(jobsTable).
		Set("state = ?", string(job.StateCompleted)).
		Set("picked_by = NULL").
		Set("updated_at = ?", now.UTC()).
		Where("id = ?", jobID).
		Where("state = ?", string(job.StateProcessing)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("queuectl/bun: complete job %s: %w", jobID, err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return nil
	}

	state, err := s.jobState(ctx, jobID)
	if err != nil {
		return err
	}
	if state == job.StateCompleted {
		return nil
	}
	return queuectl.ErrInvalidState
}

// FailJob persists a retry-policy outcome for a processing job.
func (s *Store) FailJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	res, err := s.db.NewUpdate().
		TableExpr(jobsTable).
		Set("state = ?", m.State).
		Set("attempts = ?", m.Attempts).
		Set("next_run_at = ?", m.NextRunAt).
		Set("last_error = ?", m.LastError).
		Set("picked_by = NULL").
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Where("state = ?", string(job.StateProcessing)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("queuectl/bun: fail job %s: %w", j.ID, err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows > 0 {
		return nil
	}

	if _, err := s.jobState(ctx, j.ID); err != nil {
		return err
	}
	return queuectl.ErrInvalidState
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", jobID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, queuectl.ErrJobNotFound
		}
		return nil, fmt.Errorf("queuectl/bun: get job: %w", err)
	}
	return fromJobModel(m), nil
}

// ListJobs returns jobs ordered by priority then created_at.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	var models []jobModel
	q := s.db.NewSelect().Model(&models)

	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}

	q = q.OrderExpr("priority ASC, created_at ASC, id ASC")
	q = s.page(q, opts.Limit, opts.Offset)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("queuectl/bun: list jobs: %w", err)
	}
	return fromJobModels(models), nil
}

// CountJobs returns the number of jobs per persisted state.
func (s *Store) CountJobs(ctx context.Context) (map[job.State]int64, error) {
	var rows []stateCount
	err := s.db.NewSelect().
		TableExpr(jobsTable).
		ColumnExpr("state").
		ColumnExpr("COUNT(*) AS n").
		Group("state").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("queuectl/bun: count jobs: %w", err)
	}

	out := make(map[job.State]int64, len(rows))
	for _, r := range rows {
		out[job.State(r.State)] = r.N
	}
	return out, nil
}

// jobState returns the current state of a job, or ErrJobNotFound.
func (s *Store) jobState(ctx context.Context, jobID string) (job.State, error) {
	var state string
	err := s.db.NewSelect().
		TableExpr(jobsTable).
		Column("state").
		Where("id = ?", jobID).
		Limit(1).
		Scan(ctx, &state)
	if err != nil {
		if isNoRows(err) {
			return "", queuectl.ErrJobNotFound
		}
		return "", fmt.Errorf("queuectl/bun: get job state: %w", err)
	}
	return job.State(state), nil
}
