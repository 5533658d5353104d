package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run the background jobs",
	}
	cmd.AddCommand(newJobsListCmd(), newJobsRunCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(a.Scheduler().Jobs(), "\n"))
			return nil
		},
	}
}

func newJobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Run one background job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			if err := a.Scheduler().RunJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s done\n", args[0])
			return nil
		},
	}
}
