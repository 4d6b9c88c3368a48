package audithook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ah "github.com/xraph/queuectl/audit_hook"
	"github.com/xraph/queuectl/ext"
	"github.com/xraph/queuectl/job"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Test helpers ─────────────────────────────────────

var auditTime = time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

func newTestJob() *job.Job {
	return &job.Job{
		ID:         "send-email",
		Command:    "mail -s hi ops@example.com",
		State:      job.StateProcessing,
		Attempts:   1,
		MaxRetries: 3,
		Priority:   2,
		PickedBy:   "wkr_test:worker-1",
		LastError:  "exit_code=1",
	}
}

func newExtension(rec ah.Recorder, opts ...ah.Option) *ah.Extension {
	opts = append([]ah.Option{ah.WithClock(func() time.Time { return auditTime })}, opts...)
	return ah.New(rec, opts...)
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	e := newExtension(&mockRecorder{})
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

func TestExtension_JobHooks(t *testing.T) {
	ctx := context.Background()
	j := newTestJob()
	next := auditTime.Add(4 * time.Second)

	tests := []struct {
		name     string
		fire     func(*ah.Extension) error
		action   string
		severity string
		outcome  string
		meta     map[string]any
		reason   string
	}{
		{
			name:     "enqueued",
			fire:     func(e *ah.Extension) error { return e.OnJobEnqueued(ctx, j) },
			action:   ah.ActionJobEnqueued,
			severity: ah.SeverityInfo,
			outcome:  ah.OutcomeSuccess,
			meta:     map[string]any{"command": j.Command, "priority": 2, "max_retries": 3},
		},
		{
			name:     "claimed",
			fire:     func(e *ah.Extension) error { return e.OnJobClaimed(ctx, j) },
			action:   ah.ActionJobClaimed,
			severity: ah.SeverityInfo,
			outcome:  ah.OutcomeSuccess,
			meta:     map[string]any{"worker": "wkr_test:worker-1", "attempt": 2},
		},
		{
			name:     "completed",
			fire:     func(e *ah.Extension) error { return e.OnJobCompleted(ctx, j, 1500*time.Millisecond) },
			action:   ah.ActionJobCompleted,
			severity: ah.SeverityInfo,
			outcome:  ah.OutcomeSuccess,
			meta:     map[string]any{"attempts": 1, "elapsed_ms": int64(1500)},
		},
		{
			name:     "retrying",
			fire:     func(e *ah.Extension) error { return e.OnJobRetrying(ctx, j, 1, next) },
			action:   ah.ActionJobRetrying,
			severity: ah.SeverityWarning,
			outcome:  ah.OutcomeFailure,
			meta:     map[string]any{"attempt": 1, "next_run_at": "2025-07-04T12:00:04Z", "last_error": "exit_code=1"},
		},
		{
			name:     "dead",
			fire:     func(e *ah.Extension) error { return e.OnJobDead(ctx, j, errors.New("exit_code=127")) },
			action:   ah.ActionJobDead,
			severity: ah.SeverityCritical,
			outcome:  ah.OutcomeFailure,
			meta:     map[string]any{"attempts": 1, "error": "exit_code=127"},
			reason:   "exit_code=127",
		},
		{
			name:     "requeued",
			fire:     func(e *ah.Extension) error { return e.OnJobRequeued(ctx, j) },
			action:   ah.ActionJobRequeued,
			severity: ah.SeverityInfo,
			outcome:  ah.OutcomeSuccess,
			meta:     map[string]any{"command": j.Command},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			if err := tt.fire(newExtension(rec)); err != nil {
				t.Fatalf("hook: %v", err)
			}

			evt := rec.last()
			if evt == nil {
				t.Fatal("no event recorded")
			}
			if evt.Action != tt.action {
				t.Errorf("Action: want %q, got %q", tt.action, evt.Action)
			}
			if evt.Resource != ah.ResourceJob || evt.Category != ah.CategoryJob {
				t.Errorf("Resource/Category: got %q/%q", evt.Resource, evt.Category)
			}
			if evt.ResourceID != j.ID {
				t.Errorf("ResourceID: want %q, got %q", j.ID, evt.ResourceID)
			}
			if evt.Severity != tt.severity {
				t.Errorf("Severity: want %q, got %q", tt.severity, evt.Severity)
			}
			if evt.Outcome != tt.outcome {
				t.Errorf("Outcome: want %q, got %q", tt.outcome, evt.Outcome)
			}
			if evt.Reason != tt.reason {
				t.Errorf("Reason: want %q, got %q", tt.reason, evt.Reason)
			}
			if !evt.Time.Equal(auditTime) {
				t.Errorf("Time: want %v, got %v", auditTime, evt.Time)
			}
			for k, want := range tt.meta {
				if got := evt.Metadata[k]; got != want {
					t.Errorf("Metadata[%s]: want %v (%T), got %v (%T)", k, want, want, got, got)
				}
			}
		})
	}
}

func TestExtension_WithActions_FiltersDisabled(t *testing.T) {
	rec := &mockRecorder{}
	e := newExtension(rec, ah.WithActions(ah.ActionJobCompleted, ah.ActionJobDead))

	ctx := context.Background()
	j := newTestJob()

	// Enqueued is NOT enabled, so it is silently skipped.
	if err := e.OnJobEnqueued(ctx, j); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected 0 events (enqueued disabled), got %d", rec.count())
	}

	if err := e.OnJobCompleted(ctx, j, 50*time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}
	if err := e.OnJobDead(ctx, j, errors.New("boom")); err != nil {
		t.Fatalf("OnJobDead: %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("expected 2 events, got %d", rec.count())
	}
}

// ── Recorder adapters ────────────────────────────────

func TestRecorderFunc(t *testing.T) {
	var captured *ah.AuditEvent
	fn := ah.RecorderFunc(func(_ context.Context, evt *ah.AuditEvent) error {
		captured = evt
		return nil
	})

	if err := newExtension(fn).OnJobEnqueued(context.Background(), newTestJob()); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
	if captured == nil {
		t.Fatal("RecorderFunc was not called")
	}
	if captured.Action != ah.ActionJobEnqueued {
		t.Errorf("Action: want %q, got %q", ah.ActionJobEnqueued, captured.Action)
	}
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	e := newExtension(ah.JSONLines(&buf))
	ctx := context.Background()
	j := newTestJob()

	_ = e.OnJobClaimed(ctx, j)
	_ = e.OnJobDead(ctx, j, errors.New("exit_code=1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var evt ah.AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Action != ah.ActionJobDead || evt.ResourceID != "send-email" || evt.Reason != "exit_code=1" {
		t.Errorf("decoded event = %+v", evt)
	}
}

func TestExtension_RecorderError_DoesNotPropagate(t *testing.T) {
	failingRecorder := ah.RecorderFunc(func(_ context.Context, _ *ah.AuditEvent) error {
		return errors.New("audit backend down")
	})

	// Audit failures must not block the job pipeline.
	if err := newExtension(failingRecorder).OnJobEnqueued(context.Background(), newTestJob()); err != nil {
		t.Fatalf("expected no error (audit failure swallowed), got: %v", err)
	}
}

// ── Registry integration test ────────────────────────

func TestExtension_ViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(newExtension(rec))

	ctx := context.Background()
	j := newTestJob()

	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobClaimed(ctx, j)
	reg.EmitJobCompleted(ctx, j, 50*time.Millisecond)
	reg.EmitJobRetrying(ctx, j, 1, time.Now())
	reg.EmitJobDead(ctx, j, errors.New("dead"))
	reg.EmitJobRequeued(ctx, j)

	allActions := ah.AllActions()
	if rec.count() != len(allActions) {
		t.Fatalf("expected %d events, got %d", len(allActions), rec.count())
	}
	for _, action := range allActions {
		if rec.findByAction(action) == nil {
			t.Errorf("missing event for action %q", action)
		}
	}
}
