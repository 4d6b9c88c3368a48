// Package job defines the job entity, its state machine, enqueue
// validation, and the store interface.
//
// # Lifecycle
//
//	pending → processing → completed
//	pending → processing → pending (retry, after base^attempts seconds)
//	pending → processing → dead
//	dead → pending (dead-letter requeue)
//
// Fields of note:
//   - Priority: lower values are claimed first; ties go to the oldest job
//   - NextRunAt: earliest time the job may be claimed (nil = immediately)
//   - Attempts / MaxRetries: a failure that brings Attempts to MaxRetries
//     is terminal
//   - PickedBy: owner of a processing job, empty in every other state
//
// # Enqueueing
//
// [New] validates the request and resolves the eligibility time from at
// most one of [WithDelay], [WithRunAt] or [WithRunAtTime]:
//
//	j, err := job.New("backup-42", "tar czf /tmp/b.tgz /data", 3, now,
//	    job.WithPriority(-1),
//	    job.WithRunAt("2025-11-09T10:30:00"), // UTC+05:30
//	)
package job
