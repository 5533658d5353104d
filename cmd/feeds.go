package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/feed"
)

func NewFeedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Import affiliate product feeds into the catalog",
	}
	cmd.AddCommand(newFeedsListCmd(), newFeedsRunCmd(), newImportCmd())
	return cmd
}

func newFeedsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			for _, name := range a.Feeds().Feeds() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newFeedsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [feed]",
		Short: "Import one configured feed, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			names := a.Feeds().Feeds()
			if len(args) == 1 {
				names = args
			}
			for _, name := range names {
				res, err := a.Feeds().Run(cmd.Context(), name)
				if res != nil {
					printResult(cmd, res)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		format  string
		mapping []string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|url>",
		Short: "Import a CSV or JSON feed once, without configuring it",
		Example: `  storefront feeds import ofertas.csv
  storefront feeds import https://parceiro.example.com/feed.json --map name=titulo --map url=link`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := adHocJob(args[0], format, mapping)
			if err != nil {
				return err
			}
			a, stop, err := startApp(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			res, err := a.Feeds().Import(cmd.Context(), job)
			if res != nil {
				if jsonOut {
					data, _ := json.MarshalIndent(res, "", "  ")
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
				} else {
					printResult(cmd, res)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "csv or json (default: from the file extension)")
	cmd.Flags().StringArrayVar(&mapping, "map", nil, "attribute=field mapping, repeatable (name, slug, description, price, currency, image, url, category, featured, active)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

// adHocJob builds a feed job for a path or URL given on the command line.
func adHocJob(target, format string, pairs []string) (feed.Job, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(target)), ".")
	}
	if format != "csv" && format != "json" {
		return feed.Job{}, fmt.Errorf("cannot tell the feed format of %q, use --format", target)
	}

	job := feed.Job{Name: "import:" + filepath.Base(target), Source: format, Config: feed.SourceConfig{"path": target}}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		job.Source = "http"
		job.Config = feed.SourceConfig{"url": target, "format": format}
	}

	for _, pair := range pairs {
		attr, field, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return feed.Job{}, fmt.Errorf("invalid --map %q, want attribute=field", pair)
		}
		if err := setMapping(&job.Mapping, attr, field); err != nil {
			return feed.Job{}, err
		}
	}
	return job, nil
}

func setMapping(m *feed.Mapping, attr, field string) error {
	targets := map[string]*string{
		"name":        &m.Name,
		"slug":        &m.Slug,
		"description": &m.Description,
		"price":       &m.Price,
		"currency":    &m.Currency,
		"image":       &m.Image,
		"url":         &m.URL,
		"category":    &m.Category,
		"featured":    &m.Featured,
		"active":      &m.Active,
	}
	dst, ok := targets[strings.ToLower(attr)]
	if !ok {
		return fmt.Errorf("unknown mapping attribute %q", attr)
	}
	*dst = field
	return nil
}

func printResult(cmd *cobra.Command, res *feed.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d read, %d created, %d updated, %d dropped, %d failed (%s)\n",
		res.Feed, res.Status, res.RowsRead, res.Created, res.Updated, res.Dropped, res.Failed, res.Duration.Round(time.Millisecond))
	for _, e := range res.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
	}
}
