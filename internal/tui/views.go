package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/panel-ledger/internal/model"
)

const (
	timeWidth   = 19
	typeWidth   = 22
	playerWidth = 22
	minDetail   = 30
	topTypes    = 5
)

func columns(width int) []table.Column {
	detail := max(width-timeWidth-typeWidth-playerWidth-8, minDetail)
	return []table.Column{
		{Title: "Observed", Width: timeWidth},
		{Title: "Type", Width: typeWidth},
		{Title: "Player", Width: playerWidth},
		{Title: "Detail", Width: detail},
	}
}

func tableRows(actions []model.StoredAction) []table.Row {
	rows := make([]table.Row, len(actions))
	for i, a := range actions {
		player := model.Deref(a.ActorName)
		if id := model.Deref(a.ActorID); id != "" {
			player = fmt.Sprintf("%s (%s)", player, id)
		}
		detail := model.Deref(a.Detail)
		if detail == "" {
			detail = a.RawText
		}
		rows[i] = table.Row{
			a.ObservedAt.Local().Format("2006-01-02 15:04:05"),
			string(a.ActionType),
			strings.TrimSpace(player),
			detail,
		}
	}
	return rows
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("📒 Panel ledger: live feed"))
	if m.source != "" {
		b.WriteString(m.theme.Subtitle.Render("  " + m.source))
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.totalsLine())
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(m.theme.StatusError.Render("✗ " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	switch {
	case m.polling:
		parts = append(parts, m.spinner.View()+" polling")
	case m.paused:
		parts = append(parts, m.theme.StatusWarning.Render("⏸ paused"))
	default:
		parts = append(parts, m.theme.StatusSuccess.Render("● live"))
	}
	parts = append(parts, fmt.Sprintf("every %s", m.interval))
	if !m.lastPoll.IsZero() {
		parts = append(parts, "last poll "+m.lastPoll.Local().Format("15:04:05"))
	}
	parts = append(parts, fmt.Sprintf("%d polls", m.totals.Polls))
	if m.totals.Failures > 0 {
		parts = append(parts, m.theme.StatusError.Render(fmt.Sprintf("%d failed", m.totals.Failures)))
	}
	return m.theme.Subtitle.Render(strings.Join(parts, " · "))
}

func (m Model) totalsLine() string {
	t := m.totals
	line := fmt.Sprintf("%s new  %d repeated  %d not actions",
		m.theme.Bold.Render(fmt.Sprint(t.Inserted)), t.Duplicates, t.Skipped)
	if t.Errors > 0 {
		line += "  " + m.theme.StatusError.Render(fmt.Sprintf("%d store errors", t.Errors))
	}

	types := make([]model.ActionType, 0, len(t.ByType))
	for at := range t.ByType {
		types = append(types, at)
	}
	slices.SortFunc(types, func(a, b model.ActionType) int {
		if c := cmp.Compare(t.ByType[b], t.ByType[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(types) > topTypes {
		types = types[:topTypes]
	}

	chips := make([]string, len(types))
	for i, at := range types {
		chips[i] = m.theme.TypeStyle(at).Render(fmt.Sprintf("%s %d", at, t.ByType[at]))
	}
	if len(chips) == 0 {
		return line
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, line, "   ", strings.Join(chips, "  "))
}
