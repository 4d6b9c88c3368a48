package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/xraph/queuectl"
)

// Options carries the optional enqueue parameters. Pointer fields
// distinguish "not supplied" from a zero value.
type Options struct {
	// Priority orders claims. Lower values are claimed first.
	Priority int

	// MaxRetries overrides the configured default retry budget.
	MaxRetries *int

	// MaxRetriesText is a textual override, validated at enqueue.
	MaxRetriesText string

	// Delay makes the job eligible after now+Delay.
	Delay *time.Duration

	// RunAt is an explicit timestamp string. See ParseRunAt.
	RunAt string

	// RunAtTime is an explicit eligibility time.
	RunAtTime *time.Time
}

// Option is a functional option for enqueueing a job.
type Option func(*Options)

// WithPriority sets the job priority. Lower values are claimed first.
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = &n }
}

// WithMaxRetriesText overrides the retry budget from unparsed input.
// A non-integer value fails validation at enqueue.
func WithMaxRetriesText(s string) Option {
	return func(o *Options) { o.MaxRetriesText = s }
}

// WithDelay schedules the job after d. Non-positive values are rejected.
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = &d }
}

// WithRunAt schedules the job at a timestamp string.
func WithRunAt(s string) Option {
	return func(o *Options) { o.RunAt = s }
}

// WithRunAtTime schedules the job at t.
func WithRunAtTime(t time.Time) Option {
	return func(o *Options) { o.RunAtTime = &t }
}

// New validates the enqueue request and builds a pending job. The retry
// budget falls back to defaultMaxRetries when no override is given.
func New(jobID, command string, defaultMaxRetries int, now time.Time, opts ...Option) (*Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id cannot be empty", queuectl.ErrValidation)
	}
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("%w: command cannot be empty", queuectl.ErrValidation)
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	maxRetries := defaultMaxRetries
	switch {
	case o.MaxRetries != nil && o.MaxRetriesText != "":
		return nil, fmt.Errorf("%w: max_retries given twice", queuectl.ErrValidation)
	case o.MaxRetries != nil:
		if *o.MaxRetries < 0 {
			return nil, fmt.Errorf("%w: max_retries must not be negative, got %d", queuectl.ErrValidation, *o.MaxRetries)
		}
		maxRetries = *o.MaxRetries
	case o.MaxRetriesText != "":
		n, err := ParseMaxRetries(o.MaxRetriesText)
		if err != nil {
			return nil, err
		}
		maxRetries = n
	}

	next, err := ResolveNextRunAt(now, o)
	if err != nil {
		return nil, err
	}

	return &Job{
		Entity:     queuectl.NewEntity(now),
		ID:         jobID,
		Command:    command,
		State:      StatePending,
		MaxRetries: maxRetries,
		Priority:   o.Priority,
		NextRunAt:  &next,
	}, nil
}
