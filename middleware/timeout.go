package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/queuectl/job"
)

// ErrDeadline is the cancellation cause of a command that outlived its
// job timeout.
var ErrDeadline = errors.New("queuectl: command exceeded its timeout")

// Timeout bounds the command with the job's Timeout. A zero Timeout leaves
// the command unbounded. The deadline is the innermost wrapper so that the
// runner sees it directly and can kill the process.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeoutCause(ctx, j.Timeout, ErrDeadline)
		defer cancel()

		err := next(ctx)
		if err != nil && errors.Is(context.Cause(ctx), ErrDeadline) {
			logger.Warn("command timed out",
				slog.String("job_id", j.ID),
				slog.Duration("timeout", j.Timeout),
			)
		}
		return err
	}
}
