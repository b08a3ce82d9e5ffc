package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	TagPill    lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
	Prompt     lipgloss.Style

	TitleNormal    lipgloss.Style
	TitleFavourite lipgloss.Style
	// TitleMuted is used for archived rows listed under the "all" filter.
	TitleMuted lipgloss.Style
}

func Default() Theme {
	cpRosewater := lipgloss.Color("#f5e0dc")
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay0 := lipgloss.Color("#6c7086")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:          lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:       lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:        lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		TagPill:        lipgloss.NewStyle().Foreground(cpTeal),
		ActiveLine:     lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:      lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:      lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:      lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:      lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:      lipgloss.NewStyle().Foreground(cpPeach),
		Prompt:         lipgloss.NewStyle().Bold(true).Foreground(cpPeach),
		TitleNormal:    lipgloss.NewStyle().Bold(true).Foreground(cpText),
		TitleFavourite: lipgloss.NewStyle().Bold(true).Italic(true).Foreground(cpRosewater),
		TitleMuted:     lipgloss.NewStyle().Faint(true).Foreground(cpOverlay0),
	}
}

func (t Theme) StyleEntryTitle(entry sitebag.Entry, title string) string {
	if title == "" {
		return title
	}
	switch {
	case entry.Muted:
		return t.TitleMuted.Render(title)
	case entry.IsFavourite():
		return t.TitleFavourite.Render(title)
	default:
		return t.TitleNormal.Render(title)
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
