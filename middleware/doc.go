// Package middleware wraps each command attempt of a claimed job.
//
// The engine installs, outermost first: [Recover], [Tracing], [Metrics],
// [Logging], any user middleware, and finally [Timeout], which must sit
// directly above the runner so the command observes the deadline.
//
// An attempt's error classifies it. Errors with an ExitCode method report
// that status; nil is 0 and anything else is treated as status 1. See
// [ExitCode].
//
//	func Audit(w io.Writer) middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) error {
//	        err := next(ctx)
//	        fmt.Fprintf(w, "%s %d\n", j.ID, middleware.ExitCode(err))
//	        return err
//	    }
//	}
package middleware
