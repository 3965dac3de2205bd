package view

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// signedStyle colors a "+$" / "-$" figure.
func signedStyle(s string) lipgloss.Style {
	if len(s) > 0 && s[0] == '-' {
		return lossStyle
	}
	return gainStyle
}
