// Package tui renders a live view of the activity feed as it is ingested.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/panel-ledger/internal/engine"
	"github.com/Veraticus/panel-ledger/internal/model"
)

const (
	defaultInterval = 30 * time.Second
	defaultMaxRows  = 200
	// chromeHeight is the number of lines taken by everything but the table.
	chromeHeight = 9
)

// PollFunc performs one fetch-classify-store cycle.
type PollFunc func(ctx context.Context) (engine.IngestSummary, error)

// Config holds the configuration for the monitor.
type Config struct {
	Poll     PollFunc
	Theme    *Theme
	Source   string
	Interval time.Duration
	MaxRows  int
	Width    int
	Height   int
}

// Totals accumulates poll summaries for the session.
type Totals struct {
	ByType     map[model.ActionType]int
	Polls      int
	Failures   int
	Seen       int
	Inserted   int
	Duplicates int
	Skipped    int
	Errors     int
}

// Model holds the monitor state.
type Model struct {
	ctx      context.Context
	lastPoll time.Time
	lastErr  error
	poll     PollFunc
	theme    Theme
	totals   Totals
	source   string
	rows     []model.StoredAction
	keymap   KeyMap
	help     help.Model
	spinner  spinner.Model
	table    table.Model
	interval time.Duration
	maxRows  int
	width    int
	height   int
	polling  bool
	paused   bool
	showHelp bool
	quitting bool
}

func newModel(ctx context.Context, cfg Config) Model {
	theme := DefaultTheme
	if cfg.Theme != nil {
		theme = *cfg.Theme
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.StatusInfo

	t := table.New(
		table.WithColumns(columns(cfg.Width)),
		table.WithFocused(true),
	)
	// The themed header is taller than the default one, so the height is
	// set once the styles are in place.
	t.SetStyles(theme.TableStyles())
	t.SetHeight(max(cfg.Height-chromeHeight, 5))

	return Model{
		ctx:      ctx,
		poll:     cfg.Poll,
		theme:    theme,
		source:   cfg.Source,
		interval: interval,
		maxRows:  maxRows,
		width:    cfg.Width,
		height:   cfg.Height,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		table:    t,
		totals:   Totals{ByType: make(map[model.ActionType]int)},
		polling:  true,
	}
}

// Init starts the first poll. The model starts in the polling state.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-chromeHeight, 5))
		m.help.Width = msg.Width
		return m, nil

	case pollResultMsg:
		m.polling = false
		m.recordPoll(msg)
		return m, m.scheduleNext()

	case tickMsg:
		if m.paused || m.polling {
			return m, nil
		}
		m.polling = true
		return m, m.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		if !m.paused && !m.polling {
			return m, m.scheduleNext()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Refresh):
		if m.polling {
			return m, nil
		}
		m.polling = true
		return m, m.pollCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) recordPoll(msg pollResultMsg) {
	m.lastPoll = msg.at
	m.totals.Polls++
	if msg.err != nil {
		m.lastErr = msg.err
		m.totals.Failures++
		return
	}
	m.lastErr = nil

	s := msg.summary
	m.totals.Seen += s.Seen
	m.totals.Inserted += s.Inserted
	m.totals.Duplicates += s.Duplicates
	m.totals.Skipped += s.Skipped
	m.totals.Errors += s.Errors
	for t, n := range s.ByType {
		m.totals.ByType[t] += n
	}

	if len(s.New) > 0 {
		rows := make([]model.StoredAction, 0, min(len(s.New)+len(m.rows), m.maxRows))
		rows = append(rows, s.New...)
		rows = append(rows, m.rows...)
		if len(rows) > m.maxRows {
			rows = rows[:m.maxRows]
		}
		m.rows = rows
		m.table.SetRows(tableRows(m.rows))
	}
}

// pollCmd runs one poll off the update loop.
func (m Model) pollCmd() tea.Cmd {
	poll, ctx := m.poll, m.ctx
	return func() tea.Msg {
		if poll == nil {
			return pollResultMsg{at: time.Now(), err: errNoPoller}
		}
		summary, err := poll(ctx)
		return pollResultMsg{at: time.Now(), summary: summary, err: err}
	}
}

func (m Model) scheduleNext() tea.Cmd {
	if m.paused {
		return nil
	}
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Totals returns the accumulated session counters.
func (m Model) Totals() Totals {
	return m.totals
}
