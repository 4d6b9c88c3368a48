package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

func (a *app) listCmd() *cobra.Command {
	var (
		state  string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by priority and age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := job.ListOpts{Limit: limit, Offset: offset}
			if state != "" {
				st, ok := job.ParseState(state)
				if !ok {
					return fmt.Errorf("%w: unknown state %q", queuectl.ErrValidation, state)
				}
				opts.State = st
			}

			jobs, err := a.eng.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(a.stdout, "No jobs.")
				return nil
			}
			for _, j := range jobs {
				writeJobLine(a.stdout, j)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "filter by state: pending, processing, completed, failed or dead")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of jobs, 0 for all")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of jobs to skip")
	return cmd
}

func writeJobLine(w io.Writer, j *job.Job) {
	fmt.Fprintf(w, "%20s | %-10s | attempts=%d/%d | next=%s | cmd=%s | last_error=%s\n",
		j.ID, j.State, j.Attempts, j.MaxRetries, formatTime(j.NextRunAt), j.Command, orNone(j.LastError))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.eng.Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	}
}

func (a *app) jobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print one job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.eng.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			return a.printJSON(j)
		},
	})
	return cmd
}
