package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/cli"
	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
	"github.com/Veraticus/panel-ledger/internal/storage"
)

const sampleTextWidth = 70

func reclassifyCmd() *cobra.Command {
	var (
		typeFlags  []string
		batchSize  int
		workers    int
		limit      int
		execute    bool
		checkpoint bool
		history    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Re-run the rules over stored unknown and other actions",
		Long: `Re-classify stored actions whose type is a fallback (unknown, other,
legacy_multi_action) with the current rules. A record is only rewritten when
the new result is a specific type; raw text and observation time never change.

The default is a dry run that reports what would change. Pass --execute to
write. Each batch commits on its own, so an interrupted run keeps the batches
it finished and can simply be run again.`,
		Example: `  # Preview
  ledger reclassify

  # Apply, only for unknown records, in batches of 1000
  ledger reclassify --execute --type unknown --batch-size 1000

  # Past runs
  ledger reclassify --history`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			types, err := parseTypes(typeFlags)
			if err != nil {
				return err
			}
			for _, t := range types {
				if !t.IsRescuable() {
					return fmt.Errorf("%s is a specific type; only %v can be reclassified", t, model.RescuableActionTypes())
				}
			}
			if !cmd.Flags().Changed("batch-size") {
				batchSize = cfg.Reclassify.BatchSize
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Reclassify.Workers
			}

			store, err := initStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if history {
				return printRunHistory(cmd.Context(), out, store)
			}

			if execute && checkpoint {
				manager, err := store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(cmd.Context(), "reclassify")
				if err != nil {
					return fmt.Errorf("failed to checkpoint before reclassifying: %w", err)
				}
				fmt.Fprintln(out, cli.FormatInfo("Checkpoint "+info.ID+" created; restore with: ledger checkpoint restore "+info.ID))
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Reclassification", "ledger reclassify --execute")

			opts := engine.RunOptions{
				Types:     types,
				BatchSize: batchSize,
				Workers:   workers,
				Limit:     limit,
				DryRun:    !execute,
			}
			var progress *cli.ReclassifyProgress
			if !noProgress {
				progress = cli.NewReclassifyProgress(cmd.ErrOrStderr(), limit, opts.DryRun)
				opts.OnProgress = progress.Update
			}

			reclassifier := engine.NewReclassifier(classification.MustDefault(), metrics.NewRecorder(nil))
			started := time.Now()
			summary, runErr := reclassifier.Run(ctx, store, opts)
			if progress != nil {
				progress.Finish()
			}
			if summary == nil {
				return runErr
			}

			recordTypes := types
			if len(recordTypes) == 0 {
				recordTypes = model.RescuableActionTypes()
			}
			// The run context may be cancelled; the audit row should still land.
			if _, err := store.RecordReclassifyRun(context.WithoutCancel(cmd.Context()), storage.ReclassifyRun{
				StartedAt: started,
				Types:     recordTypes,
				Duration:  summary.Duration,
				Total:     summary.Total,
				Changed:   summary.Changed,
				Unchanged: summary.Unchanged,
				Errors:    summary.Errors,
				Batches:   summary.Batches,
				DryRun:    summary.DryRun,
			}); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("Failed to record run: "+err.Error()))
			}

			printRunSummary(out, summary)

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) && handler.WasInterrupted() {
					return nil
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&typeFlags, "type", "t", nil, "types to reclassify (default unknown,other,legacy_multi_action)")
	cmd.Flags().IntVar(&batchSize, "batch-size", engine.DefaultBatchSize, "records fetched and committed per batch")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel classifiers per batch (default reclassify.workers, 0 = all CPUs)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records (0 = all)")
	cmd.Flags().BoolVar(&execute, "execute", false, "write changes (default is a dry run)")
	cmd.Flags().BoolVar(&checkpoint, "checkpoint", true, "create an automatic checkpoint before executing")
	cmd.Flags().BoolVar(&history, "history", false, "list recent runs instead of running")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")

	return cmd
}

func printRunSummary(out io.Writer, s *engine.RunSummary) {
	title := "Reclassification complete"
	if s.DryRun {
		title = "Reclassification preview"
	}

	content := strings.Join([]string{
		fmt.Sprintf("Processed:   %d", s.Total),
		fmt.Sprintf("Rescued:     %s", cli.SuccessStyle.Render(strconv.Itoa(s.Changed))),
		fmt.Sprintf("Unchanged:   %d", s.Unchanged),
		fmt.Sprintf("Errors:      %d", s.Errors),
		fmt.Sprintf("Batches:     %d", s.Batches),
		fmt.Sprintf("Recognition: %s", cli.FormatPercent(s.Changed, s.Total)),
		fmt.Sprintf("Duration:    %s", s.Duration.Round(time.Millisecond)),
	}, "\n")
	fmt.Fprintln(out, cli.RenderBox(title, content))

	if len(s.ByNewType) > 0 {
		type typeCount struct {
			t model.ActionType
			n int
		}
		counts := make([]typeCount, 0, len(s.ByNewType))
		for t, n := range s.ByNewType {
			counts = append(counts, typeCount{t, n})
		}
		slices.SortFunc(counts, func(a, b typeCount) int {
			if c := cmp.Compare(b.n, a.n); c != 0 {
				return c
			}
			return cmp.Compare(a.t, b.t)
		})

		rows := make([][]string, len(counts))
		for i, c := range counts {
			rows[i] = []string{cli.FormatActionType(c.t), strconv.Itoa(c.n)}
		}
		fmt.Fprintln(out, cli.BoldStyle.Render("Rescued by new type"))
		fmt.Fprint(out, cli.RenderTable([]string{"TYPE", "COUNT"}, rows))
	}

	if len(s.Samples) > 0 {
		rows := make([][]string, len(s.Samples))
		for i, o := range s.Samples {
			text := ""
			if o.Record != nil {
				text = truncate(o.Record.RawText, sampleTextWidth)
			}
			rows[i] = []string{
				strconv.FormatInt(o.ID, 10),
				string(o.OldType) + " → " + string(o.NewType),
				text,
			}
		}
		fmt.Fprintln(out, cli.BoldStyle.Render("Samples"))
		fmt.Fprint(out, cli.RenderTable([]string{"ID", "CHANGE", "LINE"}, rows))
	}

	if s.DryRun && s.Changed > 0 {
		fmt.Fprintln(out, cli.FormatInfo("Dry run, nothing written. Apply with: ledger reclassify --execute"))
	}
}

func printRunHistory(ctx context.Context, out io.Writer, store *storage.SQLiteStorage) error {
	runs, err := store.ListReclassifyRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No reclassification runs recorded."))
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		mode := "execute"
		if r.DryRun {
			mode = "dry run"
		}
		types := make([]string, len(r.Types))
		for j, t := range r.Types {
			types[j] = string(t)
		}
		rows[i] = []string{
			formatRelativeTime(r.StartedAt),
			mode,
			strings.Join(types, ","),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Changed),
			cli.FormatPercent(r.Changed, r.Total),
			r.Duration.Round(time.Millisecond).String(),
		}
	}
	fmt.Fprint(out, cli.RenderTable([]string{"STARTED", "MODE", "TYPES", "TOTAL", "RESCUED", "RATE", "DURATION"}, rows))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
