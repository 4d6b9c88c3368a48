// Package worker runs queued shell commands.
//
// A Runner executes one command and reports its exit status. The Executor
// runs a claimed job through middleware and the Runner, then persists the
// outcome: completed on exit 0, otherwise the retry policy decides between
// a delayed retry and the dead-letter state. A Pool drives N independent
// worker loops that claim and execute jobs until their context is done.
//
// Failures of the command never escape the Executor as panics or crashes;
// they are normalized into an ExitError whose message, "exit_code=N",
// becomes the job's last error. Timeouts report 124, a missing shell or
// command 127, and any other execution fault 1.
package worker
