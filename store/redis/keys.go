package redis

import (
	"fmt"
	"time"

	"github.com/xraph/queuectl/job"
)

// Redis key naming conventions for queue data.
// All keys are prefixed with "queuectl:" to avoid collisions.

const keyPrefix = "queuectl:"

// ── Job keys ──

// jobKeyPrefix is the prefix of every job hash. Lua scripts append an id.
const jobKeyPrefix = keyPrefix + "job:"

// jobKey returns the key for a job entity: queuectl:job:{id}
func jobKey(id string) string { return jobKeyPrefix + id }

// stateKey returns the Sorted Set indexing jobs in a state:
// queuectl:state:{state}. Score is priority, member is orderKey.
func stateKey(s job.State) string { return keyPrefix + "state:" + string(s) }

// scheduledKey is the Sorted Set of pending jobs not yet promoted to
// ready. Score is next_run_at in unix microseconds, member is the job id.
const scheduledKey = keyPrefix + "scheduled"

// readyKey is the Sorted Set of eligible pending jobs. Score is priority,
// member is orderKey, so equal priorities fall back to created_at then id.
const readyKey = keyPrefix + "ready"

// ── Config keys ──

// configKey is the Hash holding every setting.
const configKey = keyPrefix + "config"

// orderKey builds the sorted-set member that orders jobs of equal
// priority by creation time, then id.
func orderKey(createdAt time.Time, id string) string {
	return fmt.Sprintf("%020d:%s", createdAt.UTC().UnixNano(), id)
}

// memberID extracts the job id from an orderKey member.
func memberID(member string) string {
	if len(member) > 21 && member[20] == ':' {
		return member[21:]
	}
	return member
}

// scheduleScore is the scheduled-set score for a next run time. A nil
// time is due immediately.
func scheduleScore(t *time.Time) float64 {
	if t == nil {
		return 0
	}
	return float64(t.UTC().UnixMicro())
}
