package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
)

const (
	// DefaultBatchSize is the number of records fetched and committed per batch.
	DefaultBatchSize = 500
	maxSamples       = 10
)

// RunOptions configures a reclassification run.
type RunOptions struct {
	OnProgress func(BatchProgress)
	Types      []model.ActionType
	BatchSize  int
	Workers    int
	Limit      int
	DryRun     bool
}

// BatchProgress is reported after every batch.
type BatchProgress struct {
	Batch     int
	Processed int
	Changed   int
	Errors    int
	Limit     int
}

// RunSummary aggregates a reclassification run.
type RunSummary struct {
	ByNewType map[model.ActionType]int
	Samples   []model.ReclassifyOutcome
	Duration  time.Duration
	Total     int
	Changed   int
	Unchanged int
	Errors    int
	Batches   int
	DryRun    bool
}

// RecognitionRate is the share of processed records that were rescued.
func (s *RunSummary) RecognitionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Changed) / float64(s.Total)
}

// Reclassifier re-runs the classifier over stored fallback records.
type Reclassifier struct {
	Classifier *classification.Classifier
	Metrics    *metrics.Recorder
	Workers    int
}

// NewReclassifier creates a reclassifier over c.
func NewReclassifier(c *classification.Classifier, m *metrics.Recorder) *Reclassifier {
	return &Reclassifier{Classifier: c, Metrics: m}
}

// Reclassify classifies every candidate and reports which ones would improve.
// It never writes. Outcomes are in input order.
func (r *Reclassifier) Reclassify(ctx context.Context, candidates []model.ReclassifyCandidate) ([]model.ReclassifyOutcome, error) {
	outcomes, _, err := r.reclassify(ctx, candidates, r.workers())
	return outcomes, err
}

func (r *Reclassifier) reclassify(ctx context.Context, candidates []model.ReclassifyCandidate, workers int) ([]model.ReclassifyOutcome, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	outcomes := make([]model.ReclassifyOutcome, len(candidates))
	failed := make([]bool, len(candidates))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range candidates {
		g.Go(func() error {
			outcome, err := r.classifyOne(candidates[i])
			if err != nil {
				slog.Warn("failed to reclassify action", "action_id", candidates[i].ID, "error", err)
				failed[i] = true
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	errCount := 0
	for _, f := range failed {
		if f {
			errCount++
		}
	}
	return outcomes, errCount, nil
}

func (r *Reclassifier) classifyOne(c model.ReclassifyCandidate) (outcome model.ReclassifyOutcome, err error) {
	outcome = model.ReclassifyOutcome{
		ID:      c.ID,
		OldType: c.CurrentType,
		NewType: c.CurrentType,
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("classifier panic: %v", p)
			outcome.Record = nil
			outcome.NewType = c.CurrentType
			outcome.Changed = false
		}
	}()

	rec := r.Classifier.Classify(c.RawText, c.ObservedAt)
	outcome.Record = rec
	if rec == nil {
		outcome.NewType = model.ActionUnknown
		return outcome, nil
	}

	outcome.NewType = rec.ActionType
	outcome.Changed = c.CurrentType.IsRescuable() &&
		!rec.ActionType.IsFallback() &&
		rec.ActionType != c.CurrentType
	return outcome, nil
}

func (r *Reclassifier) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// Run pages through store and rewrites every record the classifier can now
// place in a specific type. Cancellation is honored between batches; the
// partial summary is returned with the context error.
func (r *Reclassifier) Run(ctx context.Context, store ReclassifyStore, opts RunOptions) (*RunSummary, error) {
	if store == nil {
		return nil, errors.New("reclassify store is required")
	}

	types := opts.Types
	if len(types) == 0 {
		types = model.RescuableActionTypes()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = r.workers()
	}

	start := time.Now()
	summary := &RunSummary{
		ByNewType: make(map[model.ActionType]int),
		DryRun:    opts.DryRun,
	}
	defer func() { summary.Duration = time.Since(start) }()

	slog.Info("starting reclassification",
		"types", types,
		"batch_size", batchSize,
		"workers", workers,
		"dry_run", opts.DryRun)

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			slog.Warn("reclassification cancelled", "batches", summary.Batches, "processed", summary.Total)
			return summary, err
		}

		size := batchSize
		if opts.Limit > 0 {
			remaining := opts.Limit - summary.Total
			if remaining <= 0 {
				break
			}
			size = min(size, remaining)
		}

		records, err := store.FetchRecordsByTypes(ctx, types, afterID, size)
		if err != nil {
			return summary, fmt.Errorf("failed to fetch batch %d: %w", summary.Batches+1, err)
		}
		if len(records) == 0 {
			break
		}
		afterID = records[len(records)-1].ID

		candidates := make([]model.ReclassifyCandidate, len(records))
		for i, rec := range records {
			candidates[i] = model.CandidateFromStored(rec)
		}

		outcomes, errCount, err := r.reclassify(ctx, candidates, workers)
		if err != nil {
			return summary, err
		}

		if !opts.DryRun {
			if err := r.commit(ctx, store, outcomes); err != nil {
				return summary, fmt.Errorf("failed to commit batch %d: %w", summary.Batches+1, err)
			}
		}

		summary.Batches++
		summary.Errors += errCount
		batchChanged := r.tally(summary, outcomes)

		slog.Debug("reclassified batch",
			"batch", summary.Batches,
			"size", len(records),
			"changed", batchChanged,
			"errors", errCount)

		if opts.OnProgress != nil {
			opts.OnProgress(BatchProgress{
				Batch:     summary.Batches,
				Processed: summary.Total,
				Changed:   summary.Changed,
				Errors:    summary.Errors,
				Limit:     opts.Limit,
			})
		}

		if len(records) < size {
			break
		}
	}

	slog.Info("reclassification complete",
		"total", summary.Total,
		"changed", summary.Changed,
		"errors", summary.Errors,
		"batches", summary.Batches,
		"dry_run", opts.DryRun)
	return summary, nil
}

func (r *Reclassifier) commit(ctx context.Context, store ReclassifyStore, outcomes []model.ReclassifyOutcome) error {
	changed := false
	for _, o := range outcomes {
		if o.Changed {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	return store.WithTx(ctx, func(tx ReclassifyStore) error {
		for _, o := range outcomes {
			if !o.Changed {
				continue
			}
			if err := tx.UpdateActionFields(ctx, o.ID, o.Record); err != nil {
				return fmt.Errorf("failed to update action %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (r *Reclassifier) tally(summary *RunSummary, outcomes []model.ReclassifyOutcome) int {
	changed := 0
	for _, o := range outcomes {
		summary.Total++
		if !o.Changed {
			summary.Unchanged++
			continue
		}
		changed++
		summary.Changed++
		summary.ByNewType[o.NewType]++
		if len(summary.Samples) < maxSamples {
			summary.Samples = append(summary.Samples, o)
		}
		if !summary.DryRun {
			r.Metrics.Reclassified(o.NewType)
		}
	}
	return changed
}
