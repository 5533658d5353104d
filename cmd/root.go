// Package cmd holds the storefront command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storefront/internal/app"
	"storefront/internal/config"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Affiliate storefront with a content manager and page builder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/storefront/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewSeedCmd(),
		NewJobsCmd(),
		NewFeedsCmd(),
		NewVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// startApp loads the configuration and connects the application. The
// returned func releases it.
func startApp(ctx context.Context) (*app.App, func(), error) {
	v := config.New(configPath)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	a := app.New(cfg, v, logger)
	if err := a.Startup(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, nil, err
	}
	stop := func() {
		if err := a.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}
	return a, stop, nil
}
