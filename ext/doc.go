// Package ext defines the extension system for queuectl.
//
// Extensions are notified of lifecycle events and can react to them,
// for example by recording metrics or writing audit logs. Each lifecycle
// hook is a separate interface so extensions opt in only to the events
// they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobEnqueued]: job was accepted into the queue
//   - [JobClaimed]: a worker claimed the job
//   - [JobCompleted]: job finished successfully
//   - [JobRetrying]: job failed but will be retried
//   - [JobDead]: job failed with no retries remaining
//   - [JobRequeued]: a dead job was moved back to pending
//
// # Other Hooks
//
//   - [Shutdown]: the worker pool is shutting down gracefully
//
// Hook errors are logged and never propagated.
package ext
