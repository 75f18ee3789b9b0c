package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/model"
)

var testAt = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

func stored(id int64, t model.ActionType, actor, detail string) model.StoredAction {
	return model.StoredAction{
		ID: id,
		ActionRecord: model.ActionRecord{
			ActionType: t,
			ActorID:    model.StringPtr(actor),
			ActorName:  model.StringPtr("Player" + actor),
			Detail:     model.StringPtr(detail),
			RawText:    "Jucatorul Player" + actor + "(" + actor + ") " + detail,
			ObservedAt: testAt,
		},
	}
}

func newTestModel(poll PollFunc) Model {
	return newModel(context.Background(), Config{
		Poll:     poll,
		Source:   "https://panel.example",
		Interval: time.Minute,
		MaxRows:  3,
		Width:    120,
		Height:   30,
	})
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_PollResult(t *testing.T) {
	m := newTestModel(nil)
	require.True(t, m.polling)

	updated, cmd := m.Update(pollResultMsg{
		at: testAt,
		summary: engine.IngestSummary{
			Seen:     4,
			Inserted: 2,
			Skipped:  1,
			ByType:   map[model.ActionType]int{model.ActionMoneyDeposit: 1, model.ActionUnknown: 1},
			New: []model.StoredAction{
				stored(2, model.ActionMoneyDeposit, "209261", "deposited 131000000$"),
				stored(1, model.ActionUnknown, "5", ""),
			},
		},
	})
	m = updated.(Model)

	assert.False(t, m.polling)
	assert.NotNil(t, cmd, "next poll is scheduled")
	assert.Equal(t, 1, m.Totals().Polls)
	assert.Equal(t, 2, m.Totals().Inserted)
	assert.Equal(t, 1, m.Totals().ByType[model.ActionMoneyDeposit])
	require.Len(t, m.rows, 2)
	assert.Equal(t, int64(2), m.rows[0].ID)

	view := m.View()
	assert.Contains(t, view, "money_deposit")
	assert.Contains(t, view, "deposited 131000000$")
	assert.Contains(t, view, "Player209261 (209261)")
	assert.Contains(t, view, "https://panel.example")
}

func TestModel_RowsAreCapped(t *testing.T) {
	m := newTestModel(nil)
	for i := int64(1); i <= 4; i++ {
		updated, _ := m.Update(pollResultMsg{at: testAt, summary: engine.IngestSummary{
			Inserted: 1,
			ByType:   map[model.ActionType]int{model.ActionTrade: 1},
			New:      []model.StoredAction{stored(i, model.ActionTrade, "7", "trade")},
		}})
		m = updated.(Model)
	}

	require.Len(t, m.rows, 3)
	assert.Equal(t, int64(4), m.rows[0].ID, "newest first")
	assert.Equal(t, int64(2), m.rows[2].ID)
	assert.Equal(t, 4, m.Totals().ByType[model.ActionTrade])
}

func TestModel_PollError(t *testing.T) {
	m := newTestModel(nil)
	updated, _ := m.Update(pollResultMsg{at: testAt, err: errors.New("panel unreachable")})
	m = updated.(Model)

	assert.Equal(t, 1, m.Totals().Failures)
	assert.Contains(t, m.View(), "panel unreachable")

	updated, _ = m.Update(pollResultMsg{at: testAt, summary: engine.IngestSummary{ByType: map[model.ActionType]int{}}})
	m = updated.(Model)
	assert.NotContains(t, m.View(), "panel unreachable", "a successful poll clears the error")
}

func TestModel_Keys(t *testing.T) {
	polls := 0
	m := newTestModel(func(context.Context) (engine.IngestSummary, error) {
		polls++
		return engine.IngestSummary{Inserted: 1, ByType: map[model.ActionType]int{}}, nil
	})
	updated, _ := m.Update(pollResultMsg{at: testAt, summary: engine.IngestSummary{ByType: map[model.ActionType]int{}}})
	m = updated.(Model)

	t.Run("pause stops ticks", func(t *testing.T) {
		paused, cmd := m.Update(keyPress("p"))
		pm := paused.(Model)
		assert.True(t, pm.paused)
		assert.Nil(t, cmd)
		assert.Contains(t, pm.View(), "paused")

		_, cmd = pm.Update(tickMsg(testAt))
		assert.Nil(t, cmd)
	})

	t.Run("refresh polls immediately", func(t *testing.T) {
		refreshed, cmd := m.Update(keyPress("r"))
		require.NotNil(t, cmd)
		assert.True(t, refreshed.(Model).polling)

		msg := cmd()
		result, ok := msg.(pollResultMsg)
		require.True(t, ok)
		assert.Equal(t, 1, polls)
		assert.Equal(t, 1, result.summary.Inserted)
	})

	t.Run("help toggles", func(t *testing.T) {
		helped, _ := m.Update(keyPress("?"))
		assert.True(t, helped.(Model).showHelp)
	})

	t.Run("quit", func(t *testing.T) {
		quit, cmd := m.Update(keyPress("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, quit.(Model).View())
	})
}

func TestModel_WindowResize(t *testing.T) {
	m := newTestModel(nil)
	before := m.table.Height()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	m = updated.(Model)

	assert.Equal(t, 200, m.width)
	assert.Equal(t, before+20, m.table.Height())
	cols := m.table.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, 200-timeWidth-typeWidth-playerWidth-8, cols[3].Width)

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	assert.Equal(t, before, updated.(Model).table.Height(), "the first layout matches a resize to the same size")
}

func TestRun_RequiresPoll(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.ErrorIs(t, err, errNoPoller)
}
