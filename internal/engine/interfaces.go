// Package engine drives the classifier over live feed lines and stored records.
package engine

import (
	"context"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// ActionWriter persists newly classified actions. inserted is false when an
// identical line was already stored; id is then the existing row.
type ActionWriter interface {
	InsertAction(ctx context.Context, rec *model.ActionRecord) (id int64, inserted bool, err error)
}

// ReclassifyStore is the storage side of a reclassification run.
type ReclassifyStore interface {
	// FetchRecordsByTypes returns up to limit records of the given types with
	// id greater than afterID, ordered by id.
	FetchRecordsByTypes(ctx context.Context, types []model.ActionType, afterID int64, limit int) ([]model.StoredAction, error)
	// UpdateActionFields overwrites every field except the raw text and observation time.
	UpdateActionFields(ctx context.Context, id int64, rec *model.ActionRecord) error
	// WithTx runs fn against a store bound to a single transaction.
	WithTx(ctx context.Context, fn func(ReclassifyStore) error) error
}

// FeedSource yields the latest candidate lines from the activity feed.
type FeedSource interface {
	LatestActions(ctx context.Context, limit int) ([]model.FeedLine, error)
}
