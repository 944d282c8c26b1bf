// Package watch implements the kgbridge agent watch TUI.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes styling for the watch TUI so colors live in one
// place.
type Theme struct {
	// Agent state colors
	StatusOK       lipgloss.Style
	StatusRunning  lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusStopped  lipgloss.Style
	StatusDisabled lipgloss.Style

	// Chrome
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Activity meter dots
	MeterOn  lipgloss.Style
	MeterOff lipgloss.Style
}

func NewDefaultTheme() Theme {
	accent := lipgloss.Color("#5F87FF")

	return Theme{
		StatusOK:       lipgloss.NewStyle().Foreground(lipgloss.Color("#00D75F")),
		StatusRunning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		StatusStopped:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		StatusDisabled: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		MeterOn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00D75F")),
		MeterOff: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}
