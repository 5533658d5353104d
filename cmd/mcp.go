package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the page builder MCP server on stdin/stdout",
		Long: `Runs a Model Context Protocol server over stdio so an agent can edit
pages with the same operations as the admin builder.

Destructive tools (delete_page, delete_product) wait until an administrator
approves them in the admin API of a running "storefront serve".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, stop, err := startApp(ctx)
			if err != nil {
				return err
			}
			defer stop()
			return a.ServeMCP(ctx)
		},
	}
}
