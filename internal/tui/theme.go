package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header    lipgloss.Style
	status    lipgloss.Style
	userLabel lipgloss.Style
	botLabel  lipgloss.Style
	message   lipgloss.Style
	sources   lipgloss.Style
	help      lipgloss.Style
	composer  lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		userLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		botLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true),
		message: lipgloss.NewStyle(),
		sources: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		composer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")),
	}
}
