package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/cli"
	"github.com/Veraticus/panel-ledger/internal/common"
	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
)

func scrapeCmd() *cobra.Command {
	var dryRun bool
	var limit int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the activity feed once and store new actions",
		Long: `Fetch the panel home page, isolate the activity feed and store every
classified line that is not already in the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Scraper.FetchLimit
			}

			rec := metrics.NewRecorder(nil)
			client, err := newScraperClient(cfg, rec)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if dryRun {
				lines, err := client.LatestActions(ctx, limit)
				if err != nil {
					return err
				}
				classifier := classification.MustDefault()
				rows := make([][]string, 0, len(lines))
				for _, line := range lines {
					label := cli.SubtleStyle.Render("-")
					if r := classifier.Classify(line.RawText, line.ObservedAt); r != nil {
						label = cli.FormatActionType(r.ActionType)
					}
					rows = append(rows, []string{label, line.RawText})
				}
				fmt.Fprint(out, cli.RenderTable([]string{"TYPE", "LINE"}, rows))
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d lines (dry run, nothing stored)", len(lines))))
				return nil
			}

			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ingester := engine.NewIngester(classification.MustDefault(), store, rec)
			summary, err := ingester.Poll(ctx, client, limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"%d lines: %d new, %d already stored, %d not actions, %d errors",
				summary.Seen, summary.Inserted, summary.Duplicates, summary.Skipped, summary.Errors)))
			if unknown := summary.ByType[model.ActionUnknown]; unknown > 0 {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d new lines were not recognized", unknown)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print classified lines instead of storing them")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum lines to take from the feed (default scraper.fetch_limit)")

	return cmd
}

func watchCmd() *cobra.Command {
	var schedule string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scrape the activity feed on a schedule",
		Long: `Run the scrape on the configured cron schedule until interrupted.

When a metrics address is set, Prometheus counters are served at /metrics.`,
		Example: `  ledger watch
  ledger watch --schedule "@every 1m" --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = cfg.Watch.Schedule
			}
			if metricsAddr == "" {
				metricsAddr = cfg.Watch.MetricsAddr
			}

			rec := metrics.NewRecorder(prometheus.NewRegistry())
			client, err := newScraperClient(cfg, rec)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Watch", "")

			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, rec)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			ingester := engine.NewIngester(classification.MustDefault(), store, rec)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Watching %s on %q", cfg.Scraper.BaseURL, schedule)))

			return engine.RunScheduled(ctx, schedule, true, func(ctx context.Context) {
				if _, err := ingester.Poll(ctx, client, cfg.Scraper.FetchLimit); err != nil && ctx.Err() == nil {
					slog.Error("scrape failed",
						"transient", common.IsRetryable(err),
						"error", err)
				}
			})
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (default watch.schedule)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func serveMetrics(addr string, rec *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
