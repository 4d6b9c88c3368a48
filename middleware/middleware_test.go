package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/queuectl/job"
	"github.com/xraph/queuectl/middleware"
)

// codeErr is an attempt failure carrying an exit status.
type codeErr int

func (c codeErr) Error() string { return fmt.Sprintf("exit_code=%d", int(c)) }
func (c codeErr) ExitCode() int { return int(c) }

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *job.Job, next middleware.Handler) error {
			order = append(order, name+">")
			err := next(ctx)
			order = append(order, "<"+name)
			return err
		}
	}

	chain := middleware.Chain(tag("outer"), tag("inner"))
	err := chain(context.Background(), &job.Job{ID: "j"}, func(context.Context) error {
		order = append(order, "run")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "outer> inner> run <inner <outer"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestChain_Empty(t *testing.T) {
	called := false
	err := middleware.Chain()(context.Background(), &job.Job{ID: "j"}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestChain_PropagatesError(t *testing.T) {
	pass := func(ctx context.Context, _ *job.Job, next middleware.Handler) error { return next(ctx) }
	err := middleware.Chain(pass, pass)(context.Background(), &job.Job{ID: "j"}, func(context.Context) error {
		return codeErr(3)
	})
	if middleware.ExitCode(err) != 3 {
		t.Fatalf("expected exit status 3, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"exit status", codeErr(127), 127},
		{"wrapped exit status", fmt.Errorf("attempt: %w", codeErr(124)), 124},
		{"plain error", errors.New("broken pipe"), 1},
		{"panic", &middleware.PanicError{Value: "x"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := middleware.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	logger, buf := bufferLogger()
	j := &job.Job{ID: "panicky"}

	err := middleware.Recover(logger)(context.Background(), j, func(context.Context) error {
		panic("kaboom")
	})

	var pe *middleware.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %T %v", err, err)
	}
	if pe.JobID != "panicky" || pe.Value != "kaboom" || len(pe.Stack) == 0 {
		t.Errorf("PanicError = %+v", pe)
	}
	if err.Error() != "panic: kaboom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !strings.Contains(buf.String(), "recovered panic while running job") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	err := middleware.Recover(slog.Default())(context.Background(), &job.Job{ID: "j"}, func(context.Context) error {
		return codeErr(2)
	})
	if middleware.ExitCode(err) != 2 {
		t.Fatalf("expected exit status 2, got %v", err)
	}
}

func TestLogging_Success(t *testing.T) {
	logger, buf := bufferLogger()
	j := &job.Job{ID: "log-test", Command: "echo hi", PickedBy: "wkr:worker-1"}

	if err := middleware.Logging(logger)(context.Background(), j, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`msg="running command"`, `command="echo hi"`, `msg="command succeeded"`, "exit_code=0", "worker=wkr:worker-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogging_Failure(t *testing.T) {
	logger, buf := bufferLogger()
	j := &job.Job{ID: "log-test", Attempts: 1}

	err := middleware.Logging(logger)(context.Background(), j, func(context.Context) error { return codeErr(7) })
	if middleware.ExitCode(err) != 7 {
		t.Fatalf("expected exit status 7, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{`msg="command failed"`, "level=WARN", "attempt=2", "exit_code=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	j := &job.Job{ID: "timed", Timeout: time.Minute}

	err := middleware.Timeout(slog.Default())(context.Background(), j, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected a deadline")
		}
		if remaining := time.Until(deadline); remaining <= 0 || remaining > time.Minute {
			t.Errorf("remaining = %v, want within (0, 1m]", remaining)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout_NoDeadlineWhenZero(t *testing.T) {
	err := middleware.Timeout(slog.Default())(context.Background(), &job.Job{ID: "untimed"}, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Fatal("expected no deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout_Expires(t *testing.T) {
	logger, buf := bufferLogger()
	j := &job.Job{ID: "slow", Timeout: 10 * time.Millisecond}

	err := middleware.Timeout(logger)(context.Background(), j, func(ctx context.Context) error {
		<-ctx.Done()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
		}
		if !errors.Is(context.Cause(ctx), middleware.ErrDeadline) {
			t.Errorf("cause = %v, want ErrDeadline", context.Cause(ctx))
		}
		return codeErr(124)
	})
	if middleware.ExitCode(err) != 124 {
		t.Fatalf("expected exit status 124, got %v", err)
	}
	if !strings.Contains(buf.String(), `msg="command timed out"`) {
		t.Errorf("timeout not logged:\n%s", buf.String())
	}
}
