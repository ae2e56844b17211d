package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Body      lipgloss.Style
	Quiz      lipgloss.Style
	Option    lipgloss.Style
	Cursor    lipgloss.Style
	Correct   lipgloss.Style
	Incorrect lipgloss.Style
	Nudge     lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8F8F2")).
			Background(lipgloss.Color("#44475A")).
			Padding(0, 1),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BD93F9")),
		Body:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F8F8F2")),
		Quiz: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272A4")).
			Padding(0, 1),
		Option:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F8F8F2")),
		Cursor:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C")),
		Correct:   lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		Incorrect: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
		Nudge: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#F1FA8C")).
			Foreground(lipgloss.Color("#F1FA8C")).
			Padding(0, 1),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}
