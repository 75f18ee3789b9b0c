package tui

import (
	"time"

	"github.com/Veraticus/panel-ledger/internal/engine"
)

// pollResultMsg carries the outcome of one feed poll.
type pollResultMsg struct {
	at      time.Time
	err     error
	summary engine.IngestSummary
}

// tickMsg schedules the next poll.
type tickMsg time.Time
