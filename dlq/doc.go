// Package dlq manages the dead-letter set: jobs that exhausted their retry
// budget and now sit in the dead state.
//
// Dead jobs stay in the jobs table. The DLQ is a view over them, listed
// most recently updated first, plus a conditional requeue:
//
//	svc := dlq.NewService(store, store, time.Now)
//
//	dead, _ := svc.List(ctx, dlq.ListOpts{Limit: 50})
//	ok, err := svc.Retry(ctx, "nightly-report")
//	if !ok {
//	    // not found, or not dead: nothing changed
//	}
//
// A requeue resets attempts to zero, clears the error and owner, and makes
// the job eligible immediately. It is a re-entry of the same job id, not a
// new job.
package dlq
