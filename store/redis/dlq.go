package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/queuectl/dlq"
	"github.com/xraph/queuectl/job"
)

// ListDeadJobs returns dead jobs, most recently updated first.
func (s *Store) ListDeadJobs(ctx context.Context, opts dlq.ListOpts) ([]*job.Job, error) {
	members, err := s.client.ZRange(ctx, stateKey(job.StateDead), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("queuectl/redis: list dead jobs: %w", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = memberID(m)
	}
	jobs, err := s.loadJobs(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].UpdatedAt.Equal(jobs[k].UpdatedAt) {
			return jobs[i].UpdatedAt.After(jobs[k].UpdatedAt)
		}
		return jobs[i].ID < jobs[k].ID
	})
	return page(jobs, opts.Offset, opts.Limit), nil
}

// RequeueDeadJob moves a dead job back to pending, eligible at now.
func (s *Store) RequeueDeadJob(ctx context.Context, jobID string, now time.Time) (bool, error) {
	now = now.UTC()
	n, err := requeueScript.Run(ctx, s.client,
		[]string{jobKey(jobID), stateKey(job.StateDead), stateKey(job.StatePending), scheduledKey},
		jobID, formatTime(now), scheduleScore(&now),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("queuectl/redis: requeue dead job %s: %w", jobID, err)
	}
	return n == 1, nil
}
