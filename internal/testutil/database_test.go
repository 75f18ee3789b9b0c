package testutil_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/model"
	"github.com/Veraticus/panel-ledger/internal/storage"
	"github.com/Veraticus/panel-ledger/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.NewActions().
		Unknown(testutil.DepositLine).
		Typed(testutil.LoginLine, model.ActionOther).
		Build())

	require.Len(t, db.IDs, 2)
	assert.Equal(t, 1, db.MustCount(model.ActionUnknown))
	assert.Equal(t, 1, db.MustCount(model.ActionOther))

	got := db.MustGetAction(db.IDs[0])
	assert.Equal(t, testutil.DepositLine, got.RawText)
	assert.True(t, got.ObservedAt.Equal(testutil.BaseTime))
}

func TestSetupTestDBWithOptions_CustomSetup(t *testing.T) {
	called := false
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Path: filepath.Join(t.TempDir(), "ledger.db"),
		CustomSetup: func(_ context.Context, s *storage.SQLiteStorage) error {
			called = s != nil
			return nil
		},
	})

	assert.True(t, called)
	assert.NotEmpty(t, db.Storage.Path())
}

func TestReclassifyAgainstSQLite(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.NewActions().
		Deposits(5).
		Unknown(testutil.PurchaseLine).
		Typed(testutil.WarningLine, model.ActionOther).
		Unknown(testutil.LoginLine).
		Unknown(testutil.NoIDLine).
		Typed(testutil.DepositText(99), model.ActionMoneyDeposit).
		Build())

	ctx := context.Background()
	r := engine.NewReclassifier(classification.MustDefault(), metrics.NewRecorder(nil))

	preview, err := r.Run(ctx, db.Storage, engine.RunOptions{BatchSize: 3, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 9, preview.Total)
	assert.Equal(t, 7, preview.Changed)
	assert.Equal(t, 8, db.MustCount(model.ActionUnknown), "dry run must not write")

	summary, err := r.Run(ctx, db.Storage, engine.RunOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, preview.Changed, summary.Changed)
	assert.Equal(t, 5, summary.ByNewType[model.ActionMoneyDeposit])
	assert.Equal(t, 1, summary.ByNewType[model.ActionPropertyBought])
	assert.Equal(t, 1, summary.ByNewType[model.ActionWarningReceived])

	assert.Equal(t, 6, db.MustCount(model.ActionMoneyDeposit))
	assert.Equal(t, 2, db.MustCount(model.ActionUnknown), "login and id-less lines stay unknown")
	assert.Zero(t, db.MustCount(model.ActionOther))

	deposit := db.MustGetAction(db.IDs[0])
	assert.Equal(t, testutil.DepositText(1), deposit.RawText)
	assert.True(t, deposit.ObservedAt.Equal(testutil.BaseTime))
	assert.Equal(t, "1001", model.Deref(deposit.ActorID))

	again, err := r.Run(ctx, db.Storage, engine.RunOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Zero(t, again.Changed)
}
