package audithook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobEnqueued  = (*Extension)(nil)
	_ ext.JobClaimed   = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobRetrying  = (*Extension)(nil)
	_ ext.JobDead      = (*Extension)(nil)
	_ ext.JobRequeued  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	Time time.Time `json:"time"`

	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// JSONLines returns a Recorder that writes each event to w as one JSON
// object per line. Writes are serialized.
func JSONLines(w io.Writer) Recorder {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(evt)
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges queuectl lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobEnqueued implements ext.JobEnqueued.
func (e *Extension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobEnqueued, SeverityInfo, OutcomeSuccess, j.ID, nil,
		"command", j.Command,
		"priority", j.Priority,
		"max_retries", j.MaxRetries,
	)
}

// OnJobClaimed implements ext.JobClaimed.
func (e *Extension) OnJobClaimed(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobClaimed, SeverityInfo, OutcomeSuccess, j.ID, nil,
		"worker", j.PickedBy,
		"attempt", j.Attempts+1,
	)
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCompleted, SeverityInfo, OutcomeSuccess, j.ID, nil,
		"attempts", j.Attempts,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error {
	return e.record(ctx, ActionJobRetrying, SeverityWarning, OutcomeFailure, j.ID, nil,
		"attempt", attempt,
		"max_retries", j.MaxRetries,
		"next_run_at", nextRunAt.UTC().Format(time.RFC3339),
		"last_error", j.LastError,
	)
}

// OnJobDead implements ext.JobDead.
func (e *Extension) OnJobDead(ctx context.Context, j *job.Job, jobErr error) error {
	return e.record(ctx, ActionJobDead, SeverityCritical, OutcomeFailure, j.ID, jobErr,
		"attempts", j.Attempts,
		"max_retries", j.MaxRetries,
	)
}

// OnJobRequeued implements ext.JobRequeued.
func (e *Extension) OnJobRequeued(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobRequeued, SeverityInfo, OutcomeSuccess, j.ID, nil,
		"command", j.Command,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
// Recorder failures are logged, never returned.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	jobID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Time:       e.now().UTC(),
		Action:     action,
		Resource:   ResourceJob,
		Category:   CategoryJob,
		ResourceID: jobID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("job_id", jobID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
