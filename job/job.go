package job

import (
	"time"
	"unicode/utf8"

	"github.com/xraph/queuectl"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be claimed by a worker.
	StatePending State = "pending"
	// StateProcessing means a worker has claimed the job and is running it.
	StateProcessing State = "processing"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed is a reporting bucket only. No job is ever assigned it;
	// terminal failures end in StateDead.
	StateFailed State = "failed"
	// StateDead means the job exhausted its retry budget.
	StateDead State = "dead"
)

// States lists every reportable state in display order.
var States = []State{StatePending, StateProcessing, StateCompleted, StateFailed, StateDead}

// MaxErrorLength bounds the stored last error, in characters.
const MaxErrorLength = 500

// Valid reports whether s is one of the reportable states.
func (s State) Valid() bool {
	for _, v := range States {
		if s == v {
			return true
		}
	}
	return false
}

// ParseState converts a string to a State, rejecting unknown values.
func ParseState(s string) (State, bool) {
	st := State(s)
	return st, st.Valid()
}

var transitions = map[State][]State{
	StatePending:    {StateProcessing},
	StateProcessing: {StateCompleted, StatePending, StateDead},
	StateDead:       {StatePending},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// Dead -> pending is only taken by a dead-letter requeue.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is a unit of work: an opaque shell command plus scheduling and
// retry metadata.
type Job struct {
	queuectl.Entity

	ID         string     `json:"id"`
	Command    string     `json:"command"`
	State      State      `json:"state"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"max_retries"`
	Priority   int        `json:"priority"`
	NextRunAt  *time.Time `json:"next_run_at"`
	LastError  string     `json:"last_error,omitempty"`
	PickedBy   string     `json:"picked_by,omitempty"`

	// Timeout is the execution deadline applied by the worker for the
	// current attempt. It is not persisted.
	Timeout time.Duration `json:"-"`
}

// Eligible reports whether the job can be claimed at now.
func (j *Job) Eligible(now time.Time) bool {
	if j.State != StatePending {
		return false
	}
	return j.NextRunAt == nil || !j.NextRunAt.After(now)
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	cp := *j
	if j.NextRunAt != nil {
		t := *j.NextRunAt
		cp.NextRunAt = &t
	}
	return &cp
}

// TruncateError shortens msg to MaxErrorLength characters without
// splitting a multi-byte rune.
func TruncateError(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxErrorLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorLength])
}
