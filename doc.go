// Package queuectl provides a persistent work queue for shell commands.
//
// Clients enqueue jobs (an id plus an opaque command) with a priority and
// an optional eligibility time. A pool of workers claims eligible jobs from
// a shared store, runs them, and retries failures with exponential backoff
// until the job's retry budget is exhausted, at which point the job moves
// to the dead-letter set.
//
// # Quick Start
//
//	s, err := sqlite.Open("queue.db")
//	eng, err := engine.Build(ctx, s)
//	_, err = eng.Enqueue(ctx, "nightly-report", "./report.sh",
//	    job.WithPriority(-1),
//	    job.WithDelay(30*time.Second),
//	)
//	err = eng.RunWorkers(ctx, 4)
//
// # Architecture
//
// Each subsystem (job, dlq, config) defines its own store interface and a
// single backend implements all of them: memory, bun (SQLite or Postgres),
// native Postgres via pgx, and Redis. Workers coordinate only through the
// store. A claim is a candidate select followed by an update conditional on
// the job still being pending, so concurrent workers never share a job.
package queuectl
