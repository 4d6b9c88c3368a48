// Package observability provides an OpenTelemetry metrics extension for
// queuectl. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for job enqueue, claim, completion, retry, death
// and requeue events.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
