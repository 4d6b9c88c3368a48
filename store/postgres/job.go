package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

const jobColumns = `id, command, state, attempts, max_retries, priority,
	next_run_at, last_error, picked_by, created_at, updated_at`

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queuectl_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, j.Command, string(j.State), j.Attempts, j.MaxRetries, j.Priority,
		j.NextRunAt, nullString(j.LastError), nullString(j.PickedBy),
		j.CreatedAt.UTC(), j.UpdatedAt.UTC(),
	)
	if err != nil {
		// Check for unique violation (duplicate ID).
		if isDuplicateKey(err) {
			return queuectl.ErrJobAlreadyExists
		}
		return fmt.Errorf("queuectl/postgres: enqueue job: %w", err)
	}
	return nil
}

// ClaimJob selects the first eligible job, then takes it with an update
// conditional on it still being pending. A lost race returns (nil, nil).
func (s *Store) ClaimJob(ctx context.Context, owner string, now time.Time) (*job.Job, error) {
	now = now.UTC()

	var jobID string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM queuectl_jobs
		WHERE state = 'pending'
		  AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY priority ASC, created_at ASC, id ASC
		LIMIT 1`,
		now,
	).Scan(&jobID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // nil job means nothing eligible
		}
		return nil, fmt.Errorf("queuectl/postgres: select claim candidate: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE queuectl_jobs
		SET state = 'processing', picked_by = $2, updated_at = $3
		WHERE id = $1 AND state = 'pending'
		RETURNING `+jobColumns,
		jobID, owner, now,
	)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // another worker won the race
		}
		return nil, fmt.Errorf("queuectl/postgres: claim job %s: %w", jobID, err)
	}
	return j, nil
}

// CompleteJob moves a processing job to completed.
func (s *Store) CompleteJob(ctx context.Context, jobID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs
		SET state = 'completed', picked_by = NULL, updated_at = $2
		WHERE id = $1 AND state = 'processing'`,
		jobID, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("queuectl/postgres: complete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() > 0 {
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE queuectl_jobs
		SET state = $2, attempts = $3, next_run_at = $4, last_error = $5,
		    picked_by = NULL, updated_at = $6
		WHERE id = $1 AND state = 'processing'`,
		j.ID, string(j.State), j.Attempts, j.NextRunAt, nullString(j.LastError), j.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("queuectl/postgres: fail job %s: %w", j.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := s.jobState(ctx, j.ID); err != nil {
		return err
	}
	return queuectl.ErrInvalidState
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM queuectl_jobs
		WHERE id = $1`,
		jobID,
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, queuectl.ErrJobNotFound
		}
		return nil, fmt.Errorf("queuectl/postgres: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs ordered by priority then created_at.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM queuectl_jobs`
	var args []any

	if opts.State != "" {
		query += ` WHERE state = $1`
		args = append(args, string(opts.State))
	}
	query += ` ORDER BY priority ASC, created_at ASC, id ASC`

	clause, pageArgs := pageClause(opts.Limit, opts.Offset, len(args)+1)
	query += clause
	args = append(args, pageArgs...)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queuectl/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CountJobs returns the number of jobs per persisted state.
func (s *Store) CountJobs(ctx context.Context) (map[job.State]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT state, COUNT(*) FROM queuectl_jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("queuectl/postgres: count jobs: %w", err)
	}
	defer rows.Close()

	out := make(map[job.State]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("queuectl/postgres: scan count row: %w", err)
		}
		out[job.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queuectl/postgres: iterate count rows: %w", err)
	}
	return out, nil
}

func (s *Store) jobState(ctx context.Context, jobID string) (job.State, error) {
	var state string
	err := s.pool.QueryRow(ctx, `SELECT state FROM queuectl_jobs WHERE id = $1`, jobID).Scan(&state)
	if err != nil {
		if isNoRows(err) {
			return "", queuectl.ErrJobNotFound
		}
		return "", fmt.Errorf("queuectl/postgres: get job state: %w", err)
	}
	return job.State(state), nil
}

// scanJob scans a single row into a job.Job.
func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		state     string
		nextRunAt *time.Time
		lastError *string
		pickedBy  *string
	)

	err := row.Scan(
		&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries, &j.Priority,
		&nextRunAt, &lastError, &pickedBy, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.State = job.State(state)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	if nextRunAt != nil {
		t := nextRunAt.UTC()
		j.NextRunAt = &t
	}
	if lastError != nil {
		j.LastError = *lastError
	}
	if pickedBy != nil {
		j.PickedBy = *pickedBy
	}
	return &j, nil
}

// collectJobs drains rows into a slice.
func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("queuectl/postgres: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queuectl/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}
