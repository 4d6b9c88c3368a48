package middleware

import (
	"context"
	"errors"

	"github.com/xraph/queuectl/job"
)

// Handler runs the job's command. A non-nil error means the attempt failed.
type Handler func(ctx context.Context) error

// Middleware wraps one command attempt. It must call next exactly once
// unless it fails the attempt itself.
type Middleware func(ctx context.Context, j *job.Job, next Handler) error

// Chain composes middleware so that the first one is the outermost.
//
//	Chain(recover, tracing, logging)(ctx, j, run)
//	// recover → tracing → logging → run
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw, inner := mws[i], h
			h = func(ctx context.Context) error {
				return mw(ctx, j, inner)
			}
		}
		return h(ctx)
	}
}

// exitCoder is satisfied by errors that carry a process exit status.
type exitCoder interface {
	ExitCode() int
}

// exitCodeTimeout is the status reported for commands killed at their deadline.
const exitCodeTimeout = 124

// ExitCode reports the exit status behind an attempt result: 0 for nil,
// the carried status for exit errors, and 1 for any other fault.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}

// outcome classifies an attempt for telemetry.
func outcome(code int) string {
	switch code {
	case 0:
		return "success"
	case exitCodeTimeout:
		return "timeout"
	default:
		return "failure"
	}
}
