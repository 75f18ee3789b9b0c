package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
)

// IngestSummary counts what happened to one batch of feed lines.
type IngestSummary struct {
	ByType     map[model.ActionType]int
	New        []model.StoredAction
	Seen       int
	Skipped    int
	Inserted   int
	Duplicates int
	Errors     int
}

// Ingester classifies live feed lines and stores the resulting actions.
type Ingester struct {
	Classifier *classification.Classifier
	Writer     ActionWriter
	Metrics    *metrics.Recorder
	lastPoll   map[string]struct{}
	mu         sync.Mutex
}

// NewIngester creates an ingester writing to w.
func NewIngester(c *classification.Classifier, w ActionWriter, m *metrics.Recorder) *Ingester {
	return &Ingester{Classifier: c, Writer: w, Metrics: m}
}

// Ingest classifies each line in order and inserts every non-nil record.
// Insert failures are counted and logged without stopping the batch; a
// cancelled context stops it between lines.
func (in *Ingester) Ingest(ctx context.Context, lines []model.FeedLine) (IngestSummary, error) {
	summary := IngestSummary{ByType: make(map[model.ActionType]int)}
	if in.Writer == nil {
		return summary, errors.New("action writer is required")
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Seen++

		rec := in.Classifier.Classify(line.RawText, line.ObservedAt)
		if rec == nil {
			summary.Skipped++
			in.Metrics.Skipped()
			continue
		}

		id, inserted, err := in.Writer.InsertAction(ctx, rec)
		if err != nil {
			summary.Errors++
			slog.Warn("failed to store action",
				"action_type", rec.ActionType,
				"raw_text", rec.RawText,
				"error", err)
			continue
		}
		if !inserted {
			summary.Duplicates++
			continue
		}

		summary.Inserted++
		summary.ByType[rec.ActionType]++
		summary.New = append(summary.New, model.StoredAction{ActionRecord: *rec, ID: id})
		in.Metrics.Classified(rec.ActionType)
		slog.Debug("stored action", "action_id", id, "action_type", rec.ActionType)
	}

	if summary.ByType[model.ActionUnknown] > 0 {
		slog.Info("unrecognized actions stored",
			"unknown", summary.ByType[model.ActionUnknown],
			"inserted", summary.Inserted)
	}
	return summary, nil
}

// Poll fetches up to limit lines from src and ingests them. A line whose text
// was already on the previous poll's page is the same event seen again and is
// counted as a duplicate without reaching the writer.
func (in *Ingester) Poll(ctx context.Context, src FeedSource, limit int) (IngestSummary, error) {
	lines, err := src.LatestActions(ctx, limit)
	if err != nil {
		return IngestSummary{ByType: make(map[model.ActionType]int)}, fmt.Errorf("failed to fetch feed: %w", err)
	}

	current := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		current[line.RawText] = struct{}{}
	}
	in.mu.Lock()
	previous := in.lastPoll
	in.lastPoll = current
	in.mu.Unlock()

	fresh := lines
	if len(previous) > 0 {
		fresh = make([]model.FeedLine, 0, len(lines))
		for _, line := range lines {
			if _, seen := previous[line.RawText]; !seen {
				fresh = append(fresh, line)
			}
		}
	}

	summary, err := in.Ingest(ctx, fresh)
	repeated := len(lines) - len(fresh)
	summary.Seen += repeated
	summary.Duplicates += repeated
	if err != nil {
		return summary, err
	}
	slog.Info("feed ingested",
		"seen", summary.Seen,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"errors", summary.Errors)
	return summary, nil
}
