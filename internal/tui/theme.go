package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/panel-ledger/internal/cli"
	"github.com/Veraticus/panel-ledger/internal/model"
)

// Theme defines the visual style for the live feed monitor.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Box           lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Success       lipgloss.Color
	Warning       lipgloss.Color
	Error         lipgloss.Color
}

// DefaultTheme follows the command-line palette so both outputs match.
var DefaultTheme = newTheme(cli.PrimaryColor, cli.SuccessColor, cli.WarningColor, cli.ErrorColor)

func newTheme(primary, success, warning, failure lipgloss.Color) Theme {
	muted := lipgloss.Color("#737373")
	border := lipgloss.Color("#404040")
	return Theme{
		Primary: primary,
		Muted:   muted,
		Border:  border,
		Success: success,
		Warning: warning,
		Error:   failure,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#a3a3a3")),
		Normal:   lipgloss.NewStyle(),
		Bold:     lipgloss.NewStyle().Bold(true),

		StatusInfo:    lipgloss.NewStyle().Foreground(cli.InfoColor),
		StatusError:   lipgloss.NewStyle().Foreground(failure),
		StatusWarning: lipgloss.NewStyle().Foreground(warning),
		StatusSuccess: lipgloss.NewStyle().Foreground(success),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

// TableStyles adapts the bubbles table to the theme.
func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#fafafa")).
		Background(t.Primary).
		Bold(false)
	return s
}

// TypeStyle picks the status style for an action type.
func (t Theme) TypeStyle(at model.ActionType) lipgloss.Style {
	switch {
	case at == model.ActionUnknown:
		return t.StatusWarning
	case at.IsRescuable():
		return t.Subtitle
	default:
		return t.StatusSuccess
	}
}
