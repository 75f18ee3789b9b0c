package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/cli"
	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/tui"
)

func tailCmd() *cobra.Command {
	var interval string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Watch the activity feed live in the terminal",
		Long: `Poll the activity feed, store new actions and show them as they arrive.

Keys: r polls now, p pauses, ? shows help, q quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			every := cfg.Watch.Interval()
			if interval != "" {
				parsed, err := parseInterval(interval)
				if err != nil {
					return err
				}
				every = parsed
			}

			rec := metrics.NewRecorder(nil)
			client, err := newScraperClient(cfg, rec)
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ingester := engine.NewIngester(classification.MustDefault(), store, rec)
			totals, err := tui.Run(cmd.Context(), tui.Config{
				Source:   cfg.Scraper.BaseURL,
				Interval: every,
				Poll: func(ctx context.Context) (engine.IngestSummary, error) {
					return ingester.Poll(ctx, client, cfg.Scraper.FetchLimit)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf(
				"%d polls, %d new actions stored", totals.Polls, totals.Inserted)))
			return nil
		},
	}

	cmd.Flags().StringVar(&interval, "interval", "", "poll interval, e.g. 30s (default from watch.schedule)")

	return cmd
}

func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --interval %q: %w", s, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("invalid --interval %q: must be at least 1s", s)
	}
	return d, nil
}
