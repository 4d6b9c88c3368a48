// Package retry decides what happens to a job after a failed execution.
package retry

import (
	"time"

	"github.com/xraph/queuectl/backoff"
	"github.com/xraph/queuectl/job"
)

// Decision is the outcome of applying the policy to a failure.
type Decision struct {
	// State is the job's new state: StatePending or StateDead.
	State job.State
	// Attempt is the failed attempt number (the job's new Attempts).
	Attempt int
	// Delay is the backoff before the next attempt. Zero when dead.
	Delay time.Duration
	// NextRunAt is the next eligibility time. Nil when dead.
	NextRunAt *time.Time
}

// Dead reports whether the failure exhausted the retry budget.
func (d Decision) Dead() bool { return d.State == job.StateDead }

// Policy applies a backoff strategy to failed jobs.
type Policy struct {
	Backoff backoff.Strategy
}

// NewPolicy returns a Policy using s, or the default strategy when s is nil.
func NewPolicy(s backoff.Strategy) Policy {
	if s == nil {
		s = backoff.DefaultStrategy()
	}
	return Policy{Backoff: s}
}

// Apply records a failed execution on j and returns the decision.
//
// Attempts is incremented once. When it reaches MaxRetries the job is
// dead with no next run time. Otherwise it returns to pending and becomes
// eligible after Backoff.Delay(attempts). In both cases the owner is
// cleared and the error is stored truncated.
func (p Policy) Apply(j *job.Job, errMsg string, now time.Time) Decision {
	now = now.UTC()

	j.Attempts++
	j.LastError = job.TruncateError(errMsg)
	j.PickedBy = ""
	j.UpdatedAt = now

	if j.Attempts >= j.MaxRetries {
		j.State = job.StateDead
		j.NextRunAt = nil
		return Decision{State: job.StateDead, Attempt: j.Attempts}
	}

	delay := p.Backoff.Delay(j.Attempts)
	next := now.Add(delay)
	j.State = job.StatePending
	j.NextRunAt = &next

	return Decision{
		State:     job.StatePending,
		Attempt:   j.Attempts,
		Delay:     delay,
		NextRunAt: &next,
	}
}
