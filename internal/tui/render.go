package tui

import (
	"fmt"
	"strings"

	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
	"github.com/glabrego/sitebag-cli/internal/tags"
	"github.com/glabrego/sitebag-cli/internal/tui/state"
	"github.com/glabrego/sitebag-cli/internal/tui/view"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.theme.MetaLabel.Render(view.Toolbar(m.screen)))
	b.WriteString("\n\n")

	switch m.screen {
	case view.ScreenDetail:
		b.WriteString(m.detailView())
	case view.ScreenTags:
		b.WriteString(m.tagsView())
	case view.ScreenPrompt:
		b.WriteString(m.promptView())
	default:
		b.WriteString(m.listView())
	}

	if m.job != nil {
		b.WriteString("\n")
		b.WriteString(m.jobView())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	parts := []string{
		m.theme.Title.Render("sitebag"),
		m.theme.ModePill.Render(m.criteria.Archived.Label()),
	}
	if m.criteria.Query != "" {
		parts = append(parts, m.theme.MetaValue.Render(fmt.Sprintf("%q", m.criteria.Query)))
	}
	if len(m.criteria.Tags) > 0 {
		parts = append(parts, m.theme.TagPill.Render(view.TagLabel(m.criteria.Tags)))
	}
	return strings.Join(parts, " ")
}

func (m Model) listView() string {
	if len(m.entries) == 0 {
		if m.loading {
			return m.spinner.View() + " Loading entries...\n"
		}
		return "No entries found.\n"
	}
	var b strings.Builder
	start, end := state.CenteredWindow(len(m.entries), m.cursor, m.listHeight())
	now := m.nowFn()
	for i := start; i < end; i++ {
		b.WriteString(view.RenderEntryLine(view.EntryLineParams{
			Entry:        m.entries[i],
			Now:          now,
			RelativeTime: m.relativeTime,
			ShowTags:     true,
			Active:       i == m.cursor,
			Width:        m.contentWidth(),
		}, m.theme))
		b.WriteString("\n")
	}
	if m.loading {
		b.WriteString(m.spinner.View() + " Loading more...\n")
	}
	return b.String()
}

func (m Model) detailView() string {
	if m.detailID == "" {
		return "No entry selected.\n"
	}
	out := view.RenderDetailLines(m.detailLines(), m.detailTop, m.detailBodyHeight())
	if m.detailLoading {
		out += m.spinner.View() + " Loading entry...\n"
	}
	return out
}

func (m Model) tagsView() string {
	var b strings.Builder
	s := m.session
	if s == nil {
		return "No tag session.\n"
	}
	b.WriteString(m.theme.Section.Render("Tags for entry " + s.EntryID()))
	b.WriteString("\n\n")

	switch s.State() {
	case tags.New, tags.Initializing:
		b.WriteString(m.spinner.View() + " Loading tags...\n")
		return b.String()
	case tags.OpenFailed:
		b.WriteString("Could not load tags. Press enter to retry, esc to cancel.\n")
		return b.String()
	}

	current := s.Tags()
	if len(current) == 0 {
		b.WriteString("(no tags; saving will remove all tags)\n")
	} else {
		pills := make([]string, 0, len(current))
		for _, tag := range current {
			pills = append(pills, m.theme.TagPill.Render("#"+tag))
		}
		b.WriteString(strings.Join(pills, " "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.tagInput.View())
	b.WriteString("\n")

	if suggestions := s.Suggest(m.tagInput.Value(), 5); len(suggestions) > 0 {
		cloud := s.Cloud()
		lines := make([]string, 0, len(suggestions))
		for _, tag := range suggestions {
			if n := cloud[tag]; n > 0 {
				lines = append(lines, fmt.Sprintf("  %s (%d)", tag, n))
			} else {
				lines = append(lines, "  "+tag)
			}
		}
		b.WriteString(m.theme.MetaLabel.Render("suggestions"))
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	if s.State() == tags.Committing {
		b.WriteString(m.spinner.View() + " Saving...\n")
	}
	return b.String()
}

func (m Model) promptView() string {
	label := "Search criteria"
	if m.prompt == promptAddURL {
		label = "Add entry by URL"
	}
	return m.theme.Prompt.Render(label) + "\n" + m.promptInput.View() + "\n"
}

func (m Model) jobView() string {
	label := m.theme.Section.Render("re-extract " + m.job.EntryID)
	if frac, ok := view.JobFraction(m.jobStatus); ok {
		return label + " " + m.progress.ViewAs(frac)
	}
	details := view.JobDetails(m.jobStatus)
	if details == "" {
		details = "starting"
	}
	return label + " " + m.spinner.View() + " " + details
}

func (m Model) messagePanel() string {
	warning := ""
	if m.err != nil {
		warning = sitebag.UserMessage(m.err)
	}
	busy := m.loading || m.working || m.detailLoading
	return view.CompactMessage(busy, m.err != nil, m.status, warning, m.theme)
}

func (m Model) footer() string {
	footer := view.CompactFooter(search.Encode(m.criteria), m.page, len(m.entries), m.terminal, m.theme)
	if m.fromCache {
		footer += " • " + m.theme.MetaLabel.Render("cached")
	}
	return footer
}

