package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/queuectl/job"
)

// Logging logs each command attempt with its exit status.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		attrs := []any{
			slog.String("job_id", j.ID),
			slog.String("worker", j.PickedBy),
			slog.Int("attempt", j.Attempts+1),
		}
		logger.Info("running command", append(attrs, slog.String("command", j.Command))...)

		start := time.Now()
		err := next(ctx)
		attrs = append(attrs,
			slog.Int("exit_code", ExitCode(err)),
			slog.Duration("elapsed", time.Since(start)),
		)

		if err != nil {
			logger.Warn("command failed", append(attrs, slog.String("error", err.Error()))...)
			return err
		}
		logger.Info("command succeeded", attrs...)
		return nil
	}
}
