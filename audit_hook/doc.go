// Package audithook is a queuectl extension that bridges job lifecycle
// events to an audit trail backend.
//
// Every job lifecycle hook emits a structured audit event through the
// [Recorder] interface. The extension assigns severity levels (info for
// normal operations, warning for retries, critical for dead jobs) and
// metadata such as the attempt number, the owning worker and the error.
//
// # Writing JSON lines
//
//	f, _ := os.OpenFile("audit.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
//	eng, _ := engine.Build(ctx, s,
//	    engine.WithExtension(audithook.New(audithook.JSONLines(f))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobDead,
//	        audithook.ActionJobRequeued,
//	    ),
//	)
package audithook
