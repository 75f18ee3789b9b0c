package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/common"
)

func TestActionType_Predicates(t *testing.T) {
	tests := []struct {
		actionType ActionType
		fallback   bool
		rescuable  bool
	}{
		{ActionOther, true, true},
		{ActionUnknown, true, true},
		{ActionLegacyMultiAction, false, true},
		{ActionMoneyDeposit, false, false},
		{ActionVehicleContract, false, false},
		{ActionWarningRemoved, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.actionType), func(t *testing.T) {
			assert.Equal(t, tt.fallback, tt.actionType.IsFallback())
			assert.Equal(t, tt.rescuable, tt.actionType.IsRescuable())
			assert.True(t, tt.actionType.Valid())
		})
	}
}

func TestParseActionType(t *testing.T) {
	got, err := ParseActionType("money_transfer")
	require.NoError(t, err)
	assert.Equal(t, ActionMoneyTransfer, got)

	_, err = ParseActionType("login")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownActionType)

	_, err = ParseActionType("")
	assert.ErrorIs(t, err, common.ErrUnknownActionType)
}

func TestAllActionTypesUnique(t *testing.T) {
	seen := make(map[ActionType]bool)
	for _, at := range AllActionTypes() {
		assert.False(t, seen[at], "duplicate action type %s", at)
		seen[at] = true
	}
	assert.Len(t, seen, 20)
}

func TestActionRecord_Hash(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &ActionRecord{RawText: "Jucatorul X(1) a pus in chest x1 Apa", ObservedAt: at}
	b := &ActionRecord{RawText: "Jucatorul X(1) a pus in chest x1 Apa", ObservedAt: at, ActionType: ActionChestDeposit}
	c := &ActionRecord{RawText: "Jucatorul X(1) a pus in chest x1 Apa", ObservedAt: at.Add(time.Second)}

	assert.Equal(t, a.Hash(), b.Hash(), "hash ignores classification fields")
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)

	local := &ActionRecord{RawText: a.RawText, ObservedAt: at.In(time.FixedZone("EET", 2*3600))}
	assert.Equal(t, a.Hash(), local.Hash(), "hash is zone independent")
}

func TestActionRecord_InvolvesPlayer(t *testing.T) {
	r := &ActionRecord{ActorID: StringPtr("10"), TargetID: StringPtr("20")}
	assert.True(t, r.InvolvesPlayer("10"))
	assert.True(t, r.InvolvesPlayer("20"))
	assert.False(t, r.InvolvesPlayer("30"))
	assert.False(t, (&ActionRecord{}).InvolvesPlayer("10"))
}
