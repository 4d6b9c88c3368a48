package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	audithook "github.com/xraph/queuectl/audit_hook"
	"github.com/xraph/queuectl/engine"
)

// Environment variables and defaults for the persistent flags.
const (
	envDB     = "QUEUECTL_DB"
	defaultDB = "queue.db"
)

// app holds the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	dsn       string
	logLevel  string
	logFormat string
	auditLog  string

	logger *slog.Logger
	audit  *os.File
	eng    *engine.Engine

	// engineOpts are appended to the options used to build the engine.
	engineOpts []engine.Option
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// execute runs the command line and releases the store afterwards.
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if a.eng != nil {
		if closeErr := a.eng.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}
	if a.audit != nil {
		if closeErr := a.audit.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close audit log: %w", closeErr)
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	db := os.Getenv(envDB)
	if db == "" {
		db = defaultDB
	}

	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Background job queue for shell commands",
		Long:          "queuectl enqueues shell commands, runs them with worker processes, retries failures with exponential backoff, and keeps exhausted jobs in a dead letter queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.dsn, "db", db, "store DSN: a sqlite path, sqlite://, postgres://, bun+postgres://, redis:// or memory:// (env "+envDB+")")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&a.auditLog, "audit-log", "", "append job lifecycle audit events as JSON lines to this file")

	root.AddCommand(
		a.enqueueCmd(),
		a.workerCmd(),
		a.listCmd(),
		a.statusCmd(),
		a.dlqCmd(),
		a.configCmd(),
		a.jobCmd(),
	)
	return root
}

// setup builds the logger, opens the store and builds the engine.
func (a *app) setup(ctx context.Context) error {
	logger, err := newLogger(a.stderr, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	s, err := openStore(ctx, a.dsn, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	opts := append([]engine.Option{engine.WithLogger(logger)}, a.engineOpts...)
	if a.auditLog != "" {
		f, err := os.OpenFile(a.auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Join(fmt.Errorf("open audit log: %w", err), s.Close())
		}
		a.audit = f
		opts = append(opts, engine.WithExtension(
			audithook.New(audithook.JSONLines(f), audithook.WithLogger(logger)),
		))
	}

	eng, err := engine.Build(ctx, s, opts...)
	if err != nil {
		return errors.Join(err, s.Close())
	}
	a.eng = eng
	return nil
}

// newLogger builds the root logger from the --log-level and --log-format flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
