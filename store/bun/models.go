package bunstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

const jobsTable = "queuectl_jobs"

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	bun.BaseModel `bun:"table:queuectl_jobs"`

	ID         string     `bun:"id,pk"`
	Command    string     `bun:"command,notnull"`
	State      string     `bun:"state,notnull"`
	Attempts   int        `bun:"attempts,notnull"`
	MaxRetries int        `bun:"max_retries,notnull"`
	Priority   int        `bun:"priority,notnull"`
	NextRunAt  *time.Time `bun:"next_run_at"`
	LastError  string     `bun:"last_error,nullzero"`
	PickedBy   string     `bun:"picked_by,nullzero"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull"`
}

func toJobModel(j *job.Job) *jobModel {
	m := &jobModel{
		ID:         j.ID,
		Command:    j.Command,
		State:      string(j.State),
		Attempts:   j.Attempts,
		MaxRetries: j.MaxRetries,
		Priority:   j.Priority,
		LastError:  j.LastError,
		PickedBy:   j.PickedBy,
		CreatedAt:  j.CreatedAt.UTC(),
		UpdatedAt:  j.UpdatedAt.UTC(),
	}
	if j.NextRunAt != nil {
		t := j.NextRunAt.UTC()
		m.NextRunAt = &t
	}
	return m
}

func fromJobModel(m *jobModel) *job.Job {
	j := &job.Job{
		Entity: queuectl.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:         m.ID,
		Command:    m.Command,
		State:      job.State(m.State),
		Attempts:   m.Attempts,
		MaxRetries: m.MaxRetries,
		Priority:   m.Priority,
		LastError:  m.LastError,
		PickedBy:   m.PickedBy,
	}
	if m.NextRunAt != nil {
		t := m.NextRunAt.UTC()
		j.NextRunAt = &t
	}
	return j
}

func fromJobModels(models []jobModel) []*job.Job {
	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs
}

// stateCount is one row of the per-state count query.
type stateCount struct {
	State string `bun:"state"`
	N     int64  `bun:"n"`
}

// ── Config model ──────────────────────────────────────────────────

type configModel struct {
	bun.BaseModel `bun:"table:queuectl_config"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}
