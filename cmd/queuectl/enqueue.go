package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/job"
)

// enqueueRequest is the JSON form accepted as a positional argument.
type enqueueRequest struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries"`
	Priority   int    `json:"priority"`
	RunAt      string `json:"run_at"`
	Delay      string `json:"delay"`
}

func (a *app) enqueueCmd() *cobra.Command {
	var (
		req        enqueueRequest
		maxRetries string
	)

	cmd := &cobra.Command{
		Use:   "enqueue [json]",
		Short: "Add a new job to the queue",
		Long: `Add a new job to the queue, either with flags or as a JSON object:

  queuectl enqueue --id job1 --cmd "echo hi" --delay 1h30m
  queuectl enqueue '{"id":"job1","command":"echo hi","priority":-1}'

--run-at takes an ISO datetime. A value ending in Z is UTC. Values without
a zone are read as IST (UTC+05:30). --delay and --run-at are exclusive.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("id") || cmd.Flags().Changed("cmd") {
					return fmt.Errorf("%w: pass the job as JSON or with --id/--cmd, not both", queuectl.ErrValidation)
				}
				if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
					return fmt.Errorf("%w: invalid job JSON: %v", queuectl.ErrValidation, err)
				}
			}

			opts := []job.Option{job.WithPriority(req.Priority)}
			if req.MaxRetries != nil {
				opts = append(opts, job.WithMaxRetries(*req.MaxRetries))
			}
			if maxRetries != "" {
				opts = append(opts, job.WithMaxRetriesText(maxRetries))
			}
			if req.RunAt != "" {
				opts = append(opts, job.WithRunAt(req.RunAt))
			}
			if req.Delay != "" {
				d, err := parseDelay(req.Delay)
				if err != nil {
					return err
				}
				opts = append(opts, job.WithDelay(d))
			}

			j, err := a.eng.Enqueue(cmd.Context(), req.ID, req.Command, opts...)
			if err != nil {
				return err
			}

			when := "run_at=now"
			switch {
			case req.Delay != "":
				when = "delay=" + req.Delay
			case req.RunAt != "":
				when = "run_at=" + req.RunAt
			}
			fmt.Fprintf(a.stdout, "Enqueued %s -> `%s` (priority=%d, max_retries=%d, %s)\n",
				j.ID, j.Command, j.Priority, j.MaxRetries, when)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.ID, "id", "", "job id")
	flags.StringVar(&req.Command, "cmd", "", "shell command to execute")
	flags.StringVar(&maxRetries, "max-retries", "", "override the configured retry budget")
	flags.IntVar(&req.Priority, "priority", 0, "lower number runs first")
	flags.StringVar(&req.RunAt, "run-at", "", "ISO datetime to run at")
	flags.StringVar(&req.Delay, "delay", "", "run after a delay, e.g. 20s, 5m, 1h30m, 2d3h")

	return cmd
}
