package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/glabrego/sitebag-cli/internal/dispatch"
	"github.com/glabrego/sitebag-cli/internal/feed"
	"github.com/glabrego/sitebag-cli/internal/job"
	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
	"github.com/glabrego/sitebag-cli/internal/tags"
	"github.com/glabrego/sitebag-cli/internal/tui/actions"
	"github.com/glabrego/sitebag-cli/internal/tui/platform"
	"github.com/glabrego/sitebag-cli/internal/tui/state"
	tuitheme "github.com/glabrego/sitebag-cli/internal/tui/theme"
	"github.com/glabrego/sitebag-cli/internal/tui/view"
)

const (
	cacheLimit  = 200
	eventBuffer = 64
)

type promptKind int

const (
	promptNone promptKind = iota
	promptCriteria
	promptAddURL
)

// Deps are the components the model drives. Any of them may be nil in
// tests; the matching keys then do nothing.
type Deps struct {
	Service    actions.Service
	Loader     *feed.Loader
	Dispatcher *dispatch.Dispatcher
	Poller     *job.Poller
	TagClient  tags.Client
	Logger     *log.Logger
}

type Model struct {
	deps        Deps
	logger      *log.Logger
	theme       tuitheme.Theme
	events      chan tea.Msg
	unsubscribe func()

	screen     view.Screen
	prevScreen view.Screen

	criteria   search.Criteria
	generation uint64
	page       int
	terminal   bool
	entries    []sitebag.Entry
	fromCache  bool
	cursor     int

	detailID      string
	detail        sitebag.Entry
	detailTop     int
	detailLoading bool

	pendingDeleteID string

	session  *tags.Session
	tagInput textinput.Model

	prompt      promptKind
	promptInput textinput.Model

	job       *job.Handle
	jobStatus job.Status
	jobCancel context.CancelFunc
	progress  progress.Model

	spinner      spinner.Model
	loading      bool
	working      bool
	relativeTime bool

	width    int
	height   int
	status   string
	statusID int
	err      error

	openURLFn func(string) error
	copyURLFn func(string) error
	nowFn     func() time.Time
}

// NewModel starts a search for criteria. Dispatcher successes are delivered
// to the update loop through the model's event channel.
func NewModel(deps Deps, criteria search.Criteria) Model {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	tagInput := textinput.New()
	tagInput.Prompt = "tag> "
	tagInput.Placeholder = "new tag"
	tagInput.CharLimit = 64

	promptInput := textinput.New()
	promptInput.CharLimit = 512

	m := Model{
		deps:        deps,
		logger:      logger,
		theme:       tuitheme.Default(),
		events:      make(chan tea.Msg, eventBuffer),
		criteria:    criteria,
		tagInput:    tagInput,
		promptInput: promptInput,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		openURLFn:   platform.OpenURLInBrowser,
		copyURLFn:   platform.CopyURLToClipboard,
		nowFn:       time.Now,
	}
	if deps.Dispatcher != nil {
		events := m.events
		m.unsubscribe = deps.Dispatcher.Subscribe(func(ev dispatch.Event) {
			events <- actions.ActionDoneMsg{Event: ev}
		})
	}
	if deps.Loader != nil {
		m.generation = deps.Loader.Reset(criteria)
		m.loading = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{actions.ListenCmd(m.events), m.spinner.Tick}
	if m.deps.Service != nil {
		cmds = append(cmds, actions.LoadCachedCmd(m.deps.Service, m.criteria, cacheLimit))
	}
	if m.deps.Loader != nil {
		cmds = append(cmds, actions.LoadNextCmd(m.deps.Loader, m.generation))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(40, msg.Width-30))
		cmd := m.maybeLoadMore()
		return m, cmd
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case actions.CachedEntriesMsg:
		if msg.Err != nil {
			m.logger.Warn("cached entries unavailable", "err", msg.Err)
			return m, nil
		}
		if m.page > 0 || len(msg.Entries) == 0 || !msg.Criteria.Equal(m.criteria) {
			return m, nil
		}
		anchorID := m.anchorEntryID()
		m.entries = msg.Entries
		m.fromCache = true
		m.restoreSelection(anchorID)
		return m, nil
	case actions.PageLoadedMsg:
		return m.applyPage(msg)
	case actions.EntryLoadedMsg:
		if msg.EntryID != m.detailID {
			return m, nil
		}
		m.detailLoading = false
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.detail = msg.Entry
		m.detailTop = min(m.detailTop, view.DetailMaxTop(len(m.detailLines()), m.detailBodyHeight()))
		return m, nil
	case actions.ActionDoneMsg:
		next, cmd := m.applyActionDone(msg.Event)
		return next, tea.Batch(cmd, actions.ListenCmd(m.events))
	case actions.ActionErrorMsg:
		m.working = false
		m.setError(msg.Err)
		return m, nil
	case actions.TagSessionOpenedMsg:
		if m.session == nil || msg.Session != m.session {
			return m, nil
		}
		m.working = false
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.err = nil
		return m, nil
	case actions.TagCommitMsg:
		return m.applyTagCommit(msg)
	case actions.JobStartedMsg:
		m.working = false
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.job = msg.Handle
		m.jobStatus = job.Status{}
		m.jobCancel = cancel
		m.err = nil
		m.status = msg.Handle.Message
		if m.status == "" {
			m.status = "Re-extraction started"
		}
		return m, actions.RunJobCmd(ctx, msg.Handle, m.events)
	case actions.JobTickMsg:
		if msg.Handle == m.job {
			m.jobStatus = msg.Status
		}
		return m, actions.ListenCmd(m.events)
	case actions.JobDoneMsg:
		if msg.Handle == nil || msg.Handle != m.job {
			return m, nil
		}
		if m.jobCancel != nil {
			m.jobCancel()
		}
		entryID := msg.Handle.EntryID
		if msg.Dropped > 0 {
			m.logger.Debug("reextract ticks dropped", "entry", entryID, "dropped", msg.Dropped)
		}
		m.job = nil
		m.jobCancel = nil
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.err = nil
		m.status = "Re-extraction finished"
		cmd := tea.Batch(m.refreshAfterChange(entryID), m.flashStatus(3*time.Second))
		return m, cmd
	case actions.AddEntryMsg:
		m.working = false
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.err = nil
		m.status = msg.Message
		if m.status == "" {
			m.status = "Entry added"
		}
		cmd := tea.Batch(m.resetFeed(), m.flashStatus(3*time.Second))
		return m, cmd
	case actions.OpenURLSuccessMsg:
		m.err = nil
		m.status = msg.Status
		cmd := m.flashStatus(3 * time.Second)
		return m, cmd
	case actions.OpenURLErrorMsg:
		m.err = nil
		m.status = msg.Err.Error()
		cmd := m.flashStatus(4 * time.Second)
		return m, cmd
	case actions.ClearStatusMsg:
		if msg.ID == m.statusID {
			m.status = ""
		}
		return m, nil
	case actions.PersistErrorMsg:
		m.logger.Warn("save criteria failed", "err", msg.Err)
		m.status = "Could not save search"
		cmd := m.flashStatus(3 * time.Second)
		return m, cmd
	}
	return m.updateInputs(msg)
}

// updateInputs forwards cursor blinks and similar messages to the focused
// text input.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case view.ScreenTags:
		m.tagInput, cmd = m.tagInput.Update(msg)
	case view.ScreenPrompt:
		m.promptInput, cmd = m.promptInput.Update(msg)
	}
	return m, cmd
}

func (m Model) applyPage(msg actions.PageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Generation != m.generation || msg.Result.Status == feed.Discarded {
		m.logger.Debug("stale page ignored", "generation", msg.Generation, "current", m.generation)
		return m, nil
	}
	m.loading = false
	if msg.Err != nil {
		m.setError(msg.Err)
		return m, nil
	}
	switch msg.Result.Status {
	case feed.Skipped:
		return m, nil
	case feed.Exhausted:
		m.terminal = true
		if msg.Result.Page > 1 {
			m.status = "No more entries"
		}
	case feed.Loaded:
		m.page = msg.Result.Page
	}
	anchorID := m.anchorEntryID()
	m.entries = m.deps.Loader.Entries()
	m.fromCache = false
	m.restoreSelection(anchorID)
	m.err = nil
	cmd := m.maybeLoadMore()
	return m, cmd
}

func (m Model) applyActionDone(ev dispatch.Event) (Model, tea.Cmd) {
	m.working = false
	m.err = nil
	m.status = ev.Message
	if m.status == "" {
		m.status = defaultActionStatus(ev.Action)
	}
	if ev.Action == dispatch.ActionDelete && ev.EntryID == m.detailID {
		m.leaveDetail()
	}
	cmd := tea.Batch(m.refreshAfterChange(ev.EntryID), m.flashStatus(3*time.Second))
	return m, cmd
}

func defaultActionStatus(action dispatch.Action) string {
	switch action {
	case dispatch.ActionDelete:
		return "Entry deleted"
	case dispatch.ActionToggleArchived:
		return "Archived state toggled"
	default:
		return "Favourite updated"
	}
}

func (m Model) applyTagCommit(msg actions.TagCommitMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.Session != m.session {
		return m, nil
	}
	m.working = false
	if msg.Err != nil {
		m.setError(msg.Err)
		return m, nil
	}
	if msg.Outcome.Kind == tags.Skipped {
		return m, nil
	}
	entryID := m.session.EntryID()
	m.closeTagEditor()
	m.err = nil
	m.status = msg.Outcome.Message
	if m.status == "" {
		m.status = "Tags saved"
	}
	cmd := tea.Batch(m.refreshAfterChange(entryID), m.flashStatus(3*time.Second))
	return m, cmd
}

// refreshAfterChange reloads what shows entryID: the open detail view
// refetches its entry and the list restarts its search.
func (m *Model) refreshAfterChange(entryID string) tea.Cmd {
	var cmds []tea.Cmd
	if m.detailID != "" && m.detailID == entryID && m.deps.Service != nil {
		m.detailLoading = true
		cmds = append(cmds, actions.LoadEntryCmd(m.deps.Service, entryID))
	}
	cmds = append(cmds, m.resetFeed())
	return tea.Batch(cmds...)
}

// resetFeed restarts paging for the current criteria. Entries stay on
// screen until the first page of the new generation arrives.
func (m *Model) resetFeed() tea.Cmd {
	if m.deps.Loader == nil {
		return nil
	}
	m.generation = m.deps.Loader.Reset(m.criteria)
	m.page = 0
	m.terminal = false
	m.loading = false
	return m.loadNext()
}

func (m *Model) loadNext() tea.Cmd {
	if m.deps.Loader == nil || m.loading || m.terminal {
		return nil
	}
	m.loading = true
	return actions.LoadNextCmd(m.deps.Loader, m.generation)
}

// maybeLoadMore requests the next page once the visible window touches the
// end of the list.
func (m *Model) maybeLoadMore() tea.Cmd {
	if m.height <= 0 || m.screen != view.ScreenList {
		return nil
	}
	start, end := state.CenteredWindow(len(m.entries), m.cursor, m.listHeight())
	if !feed.ReachedBottom(start, end-start, len(m.entries)) {
		return nil
	}
	return m.loadNext()
}

func (m *Model) applyCriteria(c search.Criteria) tea.Cmd {
	m.criteria = c
	m.entries = nil
	m.fromCache = false
	m.cursor = 0
	cmds := []tea.Cmd{m.resetFeed()}
	if m.deps.Service != nil {
		cmds = append(cmds,
			actions.LoadCachedCmd(m.deps.Service, c, cacheLimit),
			actions.SaveCriteriaCmd(m.deps.Service, c),
		)
	}
	m.status = "Search: " + c.Archived.Label()
	return tea.Batch(cmds...)
}

func (m *Model) setError(err error) {
	m.err = err
	m.status = ""
	m.logger.Warn("operation failed", "err", err)
}

func (m *Model) flashStatus(after time.Duration) tea.Cmd {
	m.statusID++
	return actions.ClearStatusCmd(m.statusID, after)
}

func (m Model) anchorEntryID() string {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return ""
	}
	return m.entries[m.cursor].ID
}

func (m *Model) restoreSelection(anchorID string) {
	m.cursor = state.RestoreCursor(m.entries, anchorID, m.cursor)
}

// currentEntry is the entry the entry actions apply to: the open detail
// entry, otherwise the list row under the cursor.
func (m Model) currentEntry() (sitebag.Entry, bool) {
	if m.detailID != "" {
		return m.detail, true
	}
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return sitebag.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m *Model) leaveDetail() {
	m.detailID = ""
	m.detail = sitebag.Entry{}
	m.detailTop = 0
	m.detailLoading = false
	if m.screen == view.ScreenDetail {
		m.screen = view.ScreenList
	}
	if m.prevScreen == view.ScreenDetail {
		m.prevScreen = view.ScreenList
	}
}

func (m *Model) closeTagEditor() {
	m.session = nil
	m.tagInput.Blur()
	m.tagInput.SetValue("")
	m.screen = m.prevScreen
}

// Close stops a running re-extraction watch and drops the dispatcher
// subscription.
func (m Model) Close() {
	if m.jobCancel != nil {
		m.jobCancel()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) contentWidth() int {
	if m.width > 0 {
		return m.width - 1
	}
	return 100
}

func (m Model) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	used := 7
	if m.job != nil {
		used += 2
	}
	return max(3, m.height-used)
}

func (m Model) detailBodyHeight() int {
	if m.height > 0 {
		used := 7
		if m.job != nil {
			used += 2
		}
		if h := m.height - used; h > 3 {
			return h
		}
	}
	return 16
}
