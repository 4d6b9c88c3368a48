package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/dlq"
)

func (a *app) dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Dead letter queue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List dead jobs, most recently failed first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := a.eng.DLQ().List(cmd.Context(), dlq.ListOpts{})
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(a.stdout, "DLQ is empty.")
				return nil
			}
			for _, j := range jobs {
				fmt.Fprintf(a.stdout, "%s | attempts=%d | last_error=%s | cmd=%s\n",
					j.ID, j.Attempts, orNone(j.LastError), j.Command)
			}
			return nil
		},
	}

	retry := &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a dead job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.eng.DLQ().Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: job %s not in DLQ", queuectl.ErrJobNotFound, args[0])
			}
			fmt.Fprintf(a.stdout, "Re-queued DLQ job %s.\n", args[0])
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Print one dead job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.eng.DLQ().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(j)
		},
	}

	cmd.AddCommand(list, retry, inspect)
	return cmd
}
