package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	jobs   map[string]*job.Job
	config map[string]string
	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:   make(map[string]*job.Job),
		config: make(map[string]string),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return m.check() }

// Ping reports ErrStoreClosed after Close.
func (m *Store) Ping(_ context.Context) error { return m.check() }

// Close marks the store closed. Further calls fail with ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Store) check() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return queuectl.ErrStoreClosed
	}
	return nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job in pending state.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return queuectl.ErrStoreClosed
	}
	if _, exists := m.jobs[j.ID]; exists {
		return queuectl.ErrJobAlreadyExists
	}
	m.jobs[j.ID] = j.Clone()
	return nil
}

// ClaimJob selects the first eligible job under a read lock, then
// re-checks and transitions it under the write lock. A job that left
// pending between the two phases is reported as no job.
func (m *Store) ClaimJob(_ context.Context, owner string, now time.Time) (*job.Job, error) {
	now = now.UTC()

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, queuectl.ErrStoreClosed
	}
	var candidate *job.Job
	for _, j := range m.jobs {
		if !j.Eligible(now) {
			continue
		}
		if candidate == nil || less(j, candidate) {
			candidate = j
		}
	}
	m.mu.RUnlock()

	if candidate == nil {
		return nil, nil //nolint:nilnil // nil job means nothing eligible
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[candidate.ID]
	if !ok || j.State != job.StatePending {
		return nil, nil //nolint:nilnil // lost the race
	}
	j.State = job.StateProcessing
	j.PickedBy = owner
	j.UpdatedAt = now
	return j.Clone(), nil
}

// CompleteJob moves a processing job to completed.
func (m *Store) CompleteJob(_ context.Context, jobID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return queuectl.ErrStoreClosed
	}
	j, ok := m.jobs[jobID]
	if !ok {
		return queuectl.ErrJobNotFound
	}
	switch j.State {
	case job.StateCompleted:
		return nil
	case job.StateProcessing:
		j.State = job.StateCompleted
		j.PickedBy = ""
		j.UpdatedAt = now.UTC()
		return nil
	default:
		return queuectl.ErrInvalidState
	}
}

// FailJob persists a retry-policy outcome for a processing job.
func (m *Store) FailJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return queuectl.ErrStoreClosed
	}
	cur, ok := m.jobs[j.ID]
	if !ok {
		return queuectl.ErrJobNotFound
	}
	if cur.State != job.StateProcessing {
		return queuectl.ErrInvalidState
	}

	next := j.Clone()
	cur.State = next.State
	cur.Attempts = next.Attempts
	cur.NextRunAt = next.NextRunAt
	cur.LastError = next.LastError
	cur.PickedBy = ""
	cur.UpdatedAt = next.UpdatedAt
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, queuectl.ErrStoreClosed
	}
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, queuectl.ErrJobNotFound
	}
	return j.Clone(), nil
}

// ListJobs returns jobs ordered by priority then created_at.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, queuectl.ErrStoreClosed
	}

	jobs := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return less(jobs[i], jobs[k]) })

	return page(jobs, opts.Offset, opts.Limit), nil
}

// CountJobs returns the number of jobs per persisted state.
func (m *Store) CountJobs(_ context.Context) (map[job.State]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, queuectl.ErrStoreClosed
	}
	out := make(map[job.State]int64)
	for _, j := range m.jobs {
		out[j.State]++
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

// ListDeadJobs returns dead jobs, most recently updated first.
func (m *Store) ListDeadJobs(_ context.Context, opts dlq.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, queuectl.ErrStoreClosed
	}

	dead := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if j.State == job.StateDead {
			dead = append(dead, j)
		}
	}
	sort.Slice(dead, func(i, k int) bool {
		a, b := dead[i].UpdatedAt, dead[k].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return dead[i].ID < dead[k].ID
	})

	return page(dead, opts.Offset, opts.Limit), nil
}

// RequeueDeadJob moves a dead job back to pending.
func (m *Store) RequeueDeadJob(_ context.Context, jobID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, queuectl.ErrStoreClosed
	}
	j, ok := m.jobs[jobID]
	if !ok || j.State != job.StateDead {
		return false, nil
	}

	now = now.UTC()
	j.State = job.StatePending
	j.Attempts = 0
	j.LastError = ""
	j.PickedBy = ""
	j.NextRunAt = &now
	j.UpdatedAt = now
	return true, nil
}

// ──────────────────────────────────────────────────
// Config Store
// ──────────────────────────────────────────────────

// GetConfig returns a copy of every persisted setting.
func (m *Store) GetConfig(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, queuectl.ErrStoreClosed
	}
	return maps.Clone(m.config), nil
}

// SetConfig inserts or overwrites a setting.
func (m *Store) SetConfig(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return queuectl.ErrStoreClosed
	}
	m.config[key] = value
	return nil
}

// SeedConfig inserts each setting whose key is absent.
func (m *Store) SeedConfig(_ context.Context, defaults map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return queuectl.ErrStoreClosed
	}
	for k, v := range defaults {
		if _, ok := m.config[k]; !ok {
			m.config[k] = v
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// less orders by priority, then created_at, then id.
func less(a, b *job.Job) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func page(jobs []*job.Job, offset, limit int) []*job.Job {
	if offset > 0 {
		if offset >= len(jobs) {
			return []*job.Job{}
		}
		jobs = jobs[offset:]
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	out := make([]*job.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}
