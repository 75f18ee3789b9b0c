// Package testutil provides shared fixtures for tests that need a real,
// migrated action database.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/panel-ledger/internal/model"
	"github.com/Veraticus/panel-ledger/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	IDs     []int64
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Path           string
	Actions        []model.ActionRecord
	SkipMigrations bool
}

// SetupTestDB creates a new in-memory test database seeded with actions.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.NewActions().
//		Unknown(testutil.DepositLine).
//		Typed(testutil.LoginLine, model.ActionOther).
//		Build())
func SetupTestDB(t *testing.T, actions []model.ActionRecord) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Actions: actions})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := opts.Path
	if path == "" {
		path = ":memory:"
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	for i := range opts.Actions {
		id, inserted, err := store.InsertAction(ctx, &opts.Actions[i])
		if err != nil {
			t.Fatalf("failed to seed action %d: %v", i, err)
		}
		if !inserted {
			t.Fatalf("seed action %d is a duplicate", i)
		}
		db.IDs = append(db.IDs, id)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustGetAction returns the stored action with id or fails the test.
func (db *TestDB) MustGetAction(id int64) *model.StoredAction {
	db.t.Helper()
	action, err := db.Storage.GetAction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get action %d: %v", id, err)
	}
	return action
}

// MustCount returns the number of stored actions of type t or fails the test.
func (db *TestDB) MustCount(t model.ActionType) int {
	db.t.Helper()
	counts, err := db.Storage.CountActionsByType(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count actions: %v", err)
	}
	return counts[t]
}

// BaseTime is the observation time used for seeded actions.
var BaseTime = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)
