package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

// listedStates are the states that can hold jobs.
var listedStates = []job.State{job.StatePending, job.StateProcessing, job.StateCompleted, job.StateDead}

// EnqueueJob stores the job as a Hash and indexes it for claiming.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	n, err := enqueueScript.Run(ctx, s.client,
		[]string{jobKey(j.ID), stateKey(job.StatePending), scheduledKey},
		j.ID, j.Command, j.Attempts, j.MaxRetries, j.Priority,
		formatTimePtr(j.NextRunAt), formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
		orderKey(j.CreatedAt, j.ID), scheduleScore(j.NextRunAt),
	).Int64()
	if err != nil {
		return fmt.Errorf("queuectl/redis: enqueue job: %w", err)
	}
	if n == 0 {
		return queuectl.ErrJobAlreadyExists
	}
	return nil
}

// ClaimJob promotes due jobs, picks the first ready one, then takes it
// with a script that re-checks it is still pending. A lost race returns
// (nil, nil).
func (s *Store) ClaimJob(ctx context.Context, owner string, now time.Time) (*job.Job, error) {
	now = now.UTC()

	member, err := promoteScript.Run(ctx, s.client,
		[]string{scheduledKey, readyKey},
		now.UnixMicro(), jobKeyPrefix,
	).Text()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil //nolint:nilnil // nil job means nothing eligible
		}
		return nil, fmt.Errorf("queuectl/redis: select claim candidate: %w", err)
	}

	jobID := memberID(member)
	n, err := claimScript.Run(ctx, s.client,
		[]string{jobKey(jobID), readyKey, stateKey(job.StatePending), stateKey(job.StateProcessing)},
		owner, formatTime(now),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("queuectl/redis: claim job %s: %w", jobID, err)
	}
	if n == 0 {
		return nil, nil //nolint:nilnil // another worker won the race
	}
	return s.GetJob(ctx, jobID)
}

// CompleteJob moves a processing job to completed.
func (s *Store) CompleteJob(ctx context.Context, jobID string, now time.Time) error {
	n, err := completeScript.Run(ctx, s.client,
		[]string{jobKey(jobID), stateKey(job.StateProcessing), stateKey(job.StateCompleted)},
		formatTime(now),
	).Int64()
	if err != nil {
		return fmt.Errorf("queuectl/redis: complete job %s: %w", jobID, err)
	}
	return transitionResult(n)
}

// FailJob persists a retry-policy outcome for a processing job.
func (s *Store) FailJob(ctx context.Context, j *job.Job) error {
	n, err := failScript.Run(ctx, s.client,
		[]string{
			jobKey(j.ID), stateKey(job.StateProcessing), stateKey(job.StatePending),
			stateKey(job.StateDead), scheduledKey,
		},
		j.ID, string(j.State), j.Attempts, j.LastError, formatTime(j.UpdatedAt),
		formatTimePtr(j.NextRunAt), scheduleScore(j.NextRunAt),
	).Int64()
	if err != nil {
		return fmt.Errorf("queuectl/redis: fail job %s: %w", j.ID, err)
	}
	return transitionResult(n)
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("queuectl/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, queuectl.ErrJobNotFound
	}
	return mapToJob(vals), nil
}

// ListJobs returns jobs ordered by priority then created_at.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	states := listedStates
	if opts.State != "" {
		states = []job.State{opts.State}
	}

	var members []goredis.Z
	for _, st := range states {
		zs, err := s.client.ZRangeWithScores(ctx, stateKey(st), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("queuectl/redis: list %s jobs: %w", st, err)
		}
		members = append(members, zs...)
	}

	sort.SliceStable(members, func(i, k int) bool {
		if members[i].Score != members[k].Score {
			return members[i].Score < members[k].Score
		}
		return members[i].Member.(string) < members[k].Member.(string) //nolint:errcheck,forcetypeassert // members are strings
	})

	ids := make([]string, 0, len(members))
	for _, z := range page(members, opts.Offset, opts.Limit) {
		ids = append(ids, memberID(z.Member.(string))) //nolint:errcheck,forcetypeassert // members are strings
	}
	return s.loadJobs(ctx, ids)
}

// CountJobs returns the number of jobs per persisted state.
func (s *Store) CountJobs(ctx context.Context) (map[job.State]int64, error) {
	pipe := s.client.Pipeline()
	cmds := make(map[job.State]*goredis.IntCmd, len(listedStates))
	for _, st := range listedStates {
		cmds[st] = pipe.ZCard(ctx, stateKey(st))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queuectl/redis: count jobs: %w", err)
	}

	out := make(map[job.State]int64, len(cmds))
	for st, cmd := range cmds {
		out[st] = cmd.Val()
	}
	return out, nil
}

// ── helpers ──

// transitionResult maps a transition script reply to an error.
func transitionResult(n int64) error {
	switch n {
	case -1:
		return queuectl.ErrJobNotFound
	case 0:
		return queuectl.ErrInvalidState
	default:
		return nil
	}
}

// loadJobs fetches job hashes in order, skipping ids removed meanwhile.
func (s *Store) loadJobs(ctx context.Context, ids []string) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0, len(ids))
	if len(ids) == 0 {
		return jobs, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, jobID := range ids {
		cmds[i] = pipe.HGetAll(ctx, jobKey(jobID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queuectl/redis: load jobs: %w", err)
	}

	for _, cmd := range cmds {
		if vals := cmd.Val(); len(vals) > 0 {
			jobs = append(jobs, mapToJob(vals))
		}
	}
	return jobs, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // best-effort parse from trusted Redis data
	return t.UTC()
}

func mapToJob(m map[string]string) *job.Job {
	attempts, _ := strconv.Atoi(m["attempts"])      //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"]) //nolint:errcheck // best-effort parse from trusted Redis data
	priority, _ := strconv.Atoi(m["priority"])      //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		Entity: queuectl.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:         m["id"],
		Command:    m["command"],
		State:      job.State(m["state"]),
		Attempts:   attempts,
		MaxRetries: maxRetries,
		Priority:   priority,
		LastError:  m["last_error"],
		PickedBy:   m["picked_by"],
	}
	if v := m["next_run_at"]; v != "" {
		t := parseTime(v)
		j.NextRunAt = &t
	}
	return j
}
