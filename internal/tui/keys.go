package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/sitebag-cli/internal/dispatch"
	article "github.com/glabrego/sitebag-cli/internal/render/article"
	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/tags"
	"github.com/glabrego/sitebag-cli/internal/tui/actions"
	"github.com/glabrego/sitebag-cli/internal/tui/platform"
	"github.com/glabrego/sitebag-cli/internal/tui/state"
	"github.com/glabrego/sitebag-cli/internal/tui/view"
)

const detailMargin = 2

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.screen {
	case view.ScreenTags:
		return m.handleTagKey(msg)
	case view.ScreenPrompt:
		return m.handlePromptKey(msg)
	}

	if m.pendingDeleteID != "" {
		entryID := m.pendingDeleteID
		m.pendingDeleteID = ""
		if key != "y" || m.deps.Dispatcher == nil {
			m.status = "Delete cancelled"
			cmd := m.flashStatus(2 * time.Second)
			return m, cmd
		}
		m.working = true
		m.status = ""
		m.err = nil
		return m, actions.DeleteCmd(m.deps.Dispatcher, dispatch.ConfirmDelete(entryID))
	}

	if cmd, ok := m.entryKey(key); ok {
		return cmd()
	}

	if m.screen == view.ScreenDetail {
		return m.handleDetailKey(key)
	}
	return m.handleListKey(key)
}

// entryKey resolves the keys that act on the current entry in both the
// list and the detail view.
func (m Model) entryKey(key string) (func() (tea.Model, tea.Cmd), bool) {
	switch key {
	case "q":
		return func() (tea.Model, tea.Cmd) { return m, tea.Quit }, true
	case "A":
		return m.toggleArchivedCurrent, true
	case "s":
		return m.toggleFavouriteCurrent, true
	case "d":
		return m.askDeleteCurrent, true
	case "T":
		return m.openTagEditor, true
	case "R":
		return m.reextractCurrent, true
	case "o":
		return m.openCurrentURL, true
	case "y":
		return m.copyCurrentURL, true
	}
	return nil, false
}

func (m Model) handleListKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.cursor = state.ClampCursor(m.cursor-1, len(m.entries))
		return m, nil
	case "down", "j":
		atEnd := m.cursor >= len(m.entries)-1
		m.cursor = state.ClampCursor(m.cursor+1, len(m.entries))
		cmd := m.maybeLoadMore()
		if cmd == nil && atEnd {
			cmd = m.loadNext()
		}
		return m, cmd
	case "pgup", "ctrl+b":
		m.cursor = state.ClampCursor(m.cursor-state.PageStep(m.height, m.status != ""), len(m.entries))
		return m, nil
	case "pgdown", "ctrl+f":
		m.cursor = state.ClampCursor(m.cursor+state.PageStep(m.height, m.status != ""), len(m.entries))
		cmd := m.maybeLoadMore()
		return m, cmd
	case "g":
		m.cursor = 0
		return m, nil
	case "G":
		m.cursor = state.ClampCursor(len(m.entries)-1, len(m.entries))
		cmd := m.maybeLoadMore()
		return m, cmd
	case "enter":
		if m.cursor < 0 || m.cursor >= len(m.entries) {
			return m, nil
		}
		entry := m.entries[m.cursor]
		m.detailID = entry.ID
		m.detail = entry
		m.detailTop = 0
		m.screen = view.ScreenDetail
		if m.deps.Service == nil {
			return m, nil
		}
		m.detailLoading = true
		return m, actions.LoadEntryCmd(m.deps.Service, entry.ID)
	case "a":
		next := search.NewCriteria(m.criteria.Archived.Next(), m.criteria.Query, m.criteria.Tags...)
		cmd := m.applyCriteria(next)
		return m, cmd
	case "/":
		return m.openPrompt(promptCriteria, search.Encode(m.criteria))
	case "+":
		return m.openPrompt(promptAddURL, "")
	case "r":
		m.err = nil
		m.status = ""
		cmd := m.resetFeed()
		return m, cmd
	case "t":
		m.relativeTime = !m.relativeTime
		return m, nil
	case "esc":
		m.err = nil
		m.status = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleDetailKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "backspace":
		m.leaveDetail()
		cmd := m.maybeLoadMore()
		return m, cmd
	case "up", "k":
		if m.detailTop > 0 {
			m.detailTop--
		}
		return m, nil
	case "down", "j":
		if m.detailTop < view.DetailMaxTop(len(m.detailLines()), m.detailBodyHeight()) {
			m.detailTop++
		}
		return m, nil
	case "pgup", "ctrl+b":
		m.detailTop = max(0, m.detailTop-m.detailBodyHeight())
		return m, nil
	case "pgdown", "ctrl+f":
		m.detailTop = min(m.detailTop+m.detailBodyHeight(), view.DetailMaxTop(len(m.detailLines()), m.detailBodyHeight()))
		return m, nil
	}
	return m, nil
}

func (m Model) handleTagKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		m.screen = m.prevScreen
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.closeTagEditor()
		m.status = "Tag edit cancelled"
		cmd := m.flashStatus(2 * time.Second)
		return m, cmd
	case "enter":
		return m.submitTagInput()
	case "tab":
		if suggestions := m.session.Suggest(m.tagInput.Value(), 1); len(suggestions) > 0 {
			m.tagInput.SetValue(suggestions[0])
			m.tagInput.CursorEnd()
		}
		return m, nil
	case "ctrl+x":
		name := strings.TrimSpace(m.tagInput.Value())
		if name == "" {
			if current := m.session.Tags(); len(current) > 0 {
				m.session.RemoveTag(current[len(current)-1])
			}
			return m, nil
		}
		if m.session.RemoveTag(name) {
			m.tagInput.SetValue("")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.tagInput, cmd = m.tagInput.Update(msg)
	return m, cmd
}

func (m Model) submitTagInput() (tea.Model, tea.Cmd) {
	switch m.session.State() {
	case tags.OpenFailed:
		m.working = true
		m.err = nil
		return m, actions.OpenTagSessionCmd(m.session)
	case tags.Ready, tags.Failed:
	default:
		return m, nil
	}
	if name := strings.TrimSpace(m.tagInput.Value()); name != "" {
		m.session.AddTag(name)
		m.tagInput.SetValue("")
		return m, nil
	}
	m.working = true
	m.err = nil
	return m, actions.CommitTagsCmd(m.session)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.promptInput.Value())
		switch m.prompt {
		case promptCriteria:
			c, err := search.Decode(value)
			if err != nil {
				m.setError(err)
				return m, nil
			}
			m.closePrompt()
			m.err = nil
			cmd := m.applyCriteria(c)
			return m, cmd
		case promptAddURL:
			valid, err := platform.ValidateEntryURL(value)
			if err != nil {
				m.err = nil
				m.status = err.Error()
				cmd := m.flashStatus(4 * time.Second)
				return m, cmd
			}
			m.closePrompt()
			if m.deps.Service == nil {
				return m, nil
			}
			m.working = true
			m.err = nil
			m.status = ""
			return m, actions.AddEntryCmd(m.deps.Service, valid)
		}
		m.closePrompt()
		return m, nil
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) openPrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.prevScreen = m.screen
	m.screen = view.ScreenPrompt
	switch kind {
	case promptCriteria:
		m.promptInput.Prompt = "search> "
		m.promptInput.Placeholder = "archived=false&tag=news&q=text"
	case promptAddURL:
		m.promptInput.Prompt = "url> "
		m.promptInput.Placeholder = "https://"
	}
	m.promptInput.SetValue(value)
	m.promptInput.CursorEnd()
	cmd := m.promptInput.Focus()
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.promptInput.Blur()
	m.promptInput.SetValue("")
	m.screen = m.prevScreen
}

func (m Model) toggleArchivedCurrent() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok || m.deps.Dispatcher == nil {
		return m, nil
	}
	m.working = true
	m.status = ""
	m.err = nil
	return m, actions.ToggleArchivedCmd(m.deps.Dispatcher, entry.ID)
}

func (m Model) toggleFavouriteCurrent() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok || m.deps.Dispatcher == nil {
		return m, nil
	}
	m.working = true
	m.status = ""
	m.err = nil
	return m, actions.SetFavouriteCmd(m.deps.Dispatcher, entry.ID, !entry.IsFavourite())
}

func (m Model) askDeleteCurrent() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = entry.URL
	}
	m.pendingDeleteID = entry.ID
	m.err = nil
	m.status = fmt.Sprintf("Delete %q? press y to confirm", title)
	return m, nil
}

func (m Model) openTagEditor() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok || m.deps.TagClient == nil {
		return m, nil
	}
	m.session = tags.NewSession(m.deps.TagClient, entry.ID, tags.WithLogger(m.logger))
	m.prevScreen = m.screen
	m.screen = view.ScreenTags
	m.tagInput.SetValue("")
	m.working = true
	m.err = nil
	m.status = ""
	cmd := tea.Batch(m.tagInput.Focus(), actions.OpenTagSessionCmd(m.session))
	return m, cmd
}

func (m Model) reextractCurrent() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok || m.deps.Poller == nil {
		return m, nil
	}
	if m.job != nil {
		m.status = "Re-extraction already running"
		cmd := m.flashStatus(3 * time.Second)
		return m, cmd
	}
	m.working = true
	m.status = ""
	m.err = nil
	return m, actions.StartJobCmd(m.deps.Poller, entry.ID)
}

func (m Model) openCurrentURL() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	validURL, err := platform.ValidateEntryURL(entry.URL)
	if err != nil {
		m.err = nil
		m.status = err.Error()
		cmd := m.flashStatus(4 * time.Second)
		return m, cmd
	}
	return m, actions.OpenURLCmd(validURL, m.openURLFn, m.copyURLFn)
}

func (m Model) copyCurrentURL() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	validURL, err := platform.ValidateEntryURL(entry.URL)
	if err != nil {
		m.err = nil
		m.status = err.Error()
		cmd := m.flashStatus(4 * time.Second)
		return m, cmd
	}
	return m, actions.CopyURLCmd(validURL, m.copyURLFn)
}

func (m Model) detailLines() []string {
	return view.DetailLines(m.detail, m.contentWidth()-detailMargin, detailMargin, article.Wrap)
}
