package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage workers",
	}

	var count int
	start := &cobra.Command{
		Use:   "start",
		Short: "Start worker loops in the foreground",
		Long: `Start worker loops that claim and run jobs until interrupted.

On SIGINT or SIGTERM each worker finishes its current job and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be >= 1, got %d", count)
			}
			fmt.Fprintf(a.stdout, "Starting %d worker(s). Press Ctrl+C to stop...\n", count)
			if err := a.eng.RunWorkers(cmd.Context(), count); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Workers stopped.")
			return nil
		},
	}
	start.Flags().IntVarP(&count, "count", "c", 1, "number of worker loops")

	cmd.AddCommand(start)
	return cmd
}
