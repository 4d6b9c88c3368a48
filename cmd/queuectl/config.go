package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Queue settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print every setting as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.eng.Config().Get(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(cfg)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update a setting",
		Long:  "Update a setting. Keys: backoff_base, max_retries_default, timeout_seconds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.eng.Config().Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Config updated: %s=%s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
