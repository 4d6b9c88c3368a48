// Package engine wires the queuectl subsystems together and provides the
// application-level API for enqueuing work, inspecting the queue, and
// running workers.
//
// The engine package sits above every subsystem package (job, config,
// dlq, worker, ext) and below the application layer, so the root
// queuectl package can stay dependency-free.
//
// # Building an Engine
//
//	s, err := sqlite.Open("queue.db")
//	if err != nil { ... }
//
//	eng, err := engine.Build(ctx, s,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	)
//
// Build applies the store migrations and seeds the default settings.
//
// # Enqueuing Jobs
//
//	eng.Enqueue(ctx, "nightly-backup", "tar czf /tmp/b.tgz /srv")
//
//	// With options
//	eng.Enqueue(ctx, "report", "make report",
//	    job.WithPriority(-1),
//	    job.WithDelay(5*time.Minute),
//	)
//
// # Running Workers
//
//	// Blocks until ctx is cancelled and in-flight jobs have finished.
//	eng.RunWorkers(ctx, 4)
//
// # Options
//
//   - [WithLogger]: set the structured logger
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the execution chain
//   - [WithBackoff]: override the configured retry backoff
//   - [WithRunner]: replace the shell runner
//   - [WithTracerProvider]: set the OpenTelemetry tracer provider
//   - [WithMeterProvider]: set the OpenTelemetry meter provider
package engine
