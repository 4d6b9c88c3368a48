package worker

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strconv"
	"time"
)

// Exit codes reported for failures that have no process exit status.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
	ExitFault    = 1
)

// DefaultShell is the interpreter commands are passed to with -c.
const DefaultShell = "sh"

// DefaultWaitDelay bounds how long Run waits for output pipes to close
// after the process was killed.
const DefaultWaitDelay = 500 * time.Millisecond

// Result is the outcome of running one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	// Err is the underlying fault when the command could not run to
	// completion. Nil for a normal exit, including non-zero ones.
	Err error
}

// OK reports whether the command exited with status 0.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner executes a shell command. The context carries the execution
// deadline; a Runner must stop the command when it is done.
type Runner interface {
	Run(ctx context.Context, command string) Result
}

// ExitError is the normalized execution failure of a job.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return "exit_code=" + strconv.Itoa(e.Code) }

// ExitCode returns Code.
func (e *ExitError) ExitCode() int { return e.Code }

// ShellRunner runs commands with "<Shell> -c <command>".
type ShellRunner struct {
	// Shell is the interpreter. Empty means DefaultShell.
	Shell string
	// WaitDelay is passed to exec.Cmd. Zero means DefaultWaitDelay.
	WaitDelay time.Duration
}

var _ Runner = ShellRunner{}

// Run executes command and maps its termination to an exit code.
func (r ShellRunner) Run(ctx context.Context, command string) Result {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	waitDelay := r.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()

	res := Result{
		ExitCode: exitCode(ctx, err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && ctx.Err() == nil) {
		res.Err = err
	}
	return res
}

func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ExitTimeout
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		// -1 means the process was terminated by a signal.
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return ExitFault
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExitNotFound
	default:
		return ExitFault
	}
}
