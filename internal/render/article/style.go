package article

import "github.com/charmbracelet/lipgloss"

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b4befe"))
	quoteBar     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")).Render("│ ")
	quoteStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#a6adc8"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Faint(true)
	imageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Faint(true).Italic(true)
)
