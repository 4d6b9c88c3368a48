package ext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/queuectl/job"
)

// hooks is the list of registered extensions implementing hook H, paired
// with the names they were registered under.
type hooks[H any] []named[H]

type named[H any] struct {
	name string
	hook H
}

// add appends e if it implements H.
func (hs *hooks[H]) add(e Extension) {
	if h, ok := e.(H); ok {
		*hs = append(*hs, named[H]{name: e.Name(), hook: h})
	}
}

// Registry fans lifecycle events out to registered extensions. Extensions
// are sorted into per-hook lists at registration, so an emit only visits
// the extensions that implement it.
//
// Register is not safe to call concurrently with the Emit methods;
// register everything before workers start.
type Registry struct {
	logger     *slog.Logger
	extensions []Extension

	enqueued  hooks[JobEnqueued]
	claimed   hooks[JobClaimed]
	completed hooks[JobCompleted]
	retrying  hooks[JobRetrying]
	dead      hooks[JobDead]
	requeued  hooks[JobRequeued]
	shutdown  hooks[Shutdown]
}

// NewRegistry returns an empty registry that reports hook failures to logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds e. Hooks run in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	r.enqueued.add(e)
	r.claimed.add(e)
	r.completed.add(e)
	r.retrying.add(e)
	r.dead.add(e)
	r.requeued.add(e)
	r.shutdown.add(e)
}

// Extensions returns the registered extensions in order.
func (r *Registry) Extensions() []Extension { return r.extensions }

func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	emit(r, "OnJobEnqueued", r.enqueued, func(h JobEnqueued) error { return h.OnJobEnqueued(ctx, j) })
}

func (r *Registry) EmitJobClaimed(ctx context.Context, j *job.Job) {
	emit(r, "OnJobClaimed", r.claimed, func(h JobClaimed) error { return h.OnJobClaimed(ctx, j) })
}

func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	emit(r, "OnJobCompleted", r.completed, func(h JobCompleted) error { return h.OnJobCompleted(ctx, j, elapsed) })
}

func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	emit(r, "OnJobRetrying", r.retrying, func(h JobRetrying) error { return h.OnJobRetrying(ctx, j, attempt, nextRunAt) })
}

func (r *Registry) EmitJobDead(ctx context.Context, j *job.Job, jobErr error) {
	emit(r, "OnJobDead", r.dead, func(h JobDead) error { return h.OnJobDead(ctx, j, jobErr) })
}

func (r *Registry) EmitJobRequeued(ctx context.Context, j *job.Job) {
	emit(r, "OnJobRequeued", r.requeued, func(h JobRequeued) error { return h.OnJobRequeued(ctx, j) })
}

func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, "OnShutdown", r.shutdown, func(h Shutdown) error { return h.OnShutdown(ctx) })
}

// emit calls fire for every hook in hs. Errors and panics are logged and
// swallowed: job state is already persisted when a hook runs.
func emit[H any](r *Registry, hook string, hs hooks[H], fire func(H) error) {
	for _, h := range hs {
		if err := safeCall(h.hook, fire); err != nil {
			r.logger.Warn("extension hook error",
				slog.String("hook", hook),
				slog.String("extension", h.name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func safeCall[H any](h H, fire func(H) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fire(h)
}
