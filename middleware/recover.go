package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/queuectl/job"
)

// PanicError is the attempt failure produced when the handler chain panics.
type PanicError struct {
	JobID string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Recover turns a panic below it into a *PanicError so a broken runner or
// middleware fails the attempt instead of the worker.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			pe := &PanicError{JobID: j.ID, Value: r, Stack: debug.Stack()}
			logger.Error("recovered panic while running job",
				slog.String("job_id", j.ID),
				slog.Any("panic", r),
				slog.String("stack", string(pe.Stack)),
			)
			err = pe
		}()
		return next(ctx)
	}
}
