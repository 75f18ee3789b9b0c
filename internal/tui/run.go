package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

var errNoPoller = errors.New("no poll function configured")

// Run shows the monitor until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) (Totals, error) {
	if cfg.Poll == nil {
		return Totals{}, errNoPoller
	}

	p := tea.NewProgram(newModel(ctx, cfg), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return Totals{}, fmt.Errorf("monitor failed: %w", err)
	}

	if m, ok := final.(Model); ok {
		return m.Totals(), nil
	}
	return Totals{}, nil
}
