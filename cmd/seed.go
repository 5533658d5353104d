package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the fallback catalog, copy, navigation and pages into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			res, err := a.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products, %d content entries, %d nav links, %d pages\n",
				res.Products, res.Content, res.Nav, res.Pages)
			return nil
		},
	}
}
