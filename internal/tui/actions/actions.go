package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/sitebag-cli/internal/dispatch"
	"github.com/glabrego/sitebag-cli/internal/feed"
	"github.com/glabrego/sitebag-cli/internal/job"
	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
	"github.com/glabrego/sitebag-cli/internal/tags"
)

const (
	requestTimeout = 10 * time.Second
	pageTimeout    = 12 * time.Second
)

type Service interface {
	ListCached(ctx context.Context, criteria search.Criteria, limit int) ([]sitebag.Entry, error)
	Entry(ctx context.Context, id string) (sitebag.Entry, error)
	AddEntry(ctx context.Context, rawURL string) (string, string, error)
	RememberCriteria(ctx context.Context, c search.Criteria) error
}

type Loader interface {
	LoadNext(ctx context.Context) (feed.Result, error)
}

type Dispatcher interface {
	Delete(ctx context.Context, c dispatch.Confirmation) (string, error)
	ToggleArchived(ctx context.Context, entryID string) (string, error)
	SetFavourite(ctx context.Context, entryID string, favourite bool) (string, error)
}

type TagSession interface {
	Open(ctx context.Context) error
	Commit(ctx context.Context) (tags.Outcome, error)
}

type Poller interface {
	Start(ctx context.Context, entryID string) (*job.Handle, error)
}

type PageLoadedMsg struct {
	Generation uint64
	Result     feed.Result
	Err        error
}

type CachedEntriesMsg struct {
	Criteria search.Criteria
	Entries  []sitebag.Entry
	Err      error
}

type EntryLoadedMsg struct {
	EntryID string
	Entry   sitebag.Entry
	Err     error
}

// ActionDoneMsg carries a dispatcher success event; it arrives through the
// subscription channel, never from the command that issued the action.
type ActionDoneMsg struct {
	Event dispatch.Event
}

type ActionErrorMsg struct {
	Action  dispatch.Action
	EntryID string
	Err     error
}

type TagSessionOpenedMsg struct {
	Session TagSession
	Err     error
}

type TagCommitMsg struct {
	Session TagSession
	Outcome tags.Outcome
	Err     error
}

type JobStartedMsg struct {
	EntryID string
	Handle  *job.Handle
	Err     error
}

type JobTickMsg struct {
	Handle *job.Handle
	Status job.Status
}

type JobDoneMsg struct {
	Handle  *job.Handle
	Err     error
	Dropped int
}

type AddEntryMsg struct {
	EntryID string
	Message string
	Err     error
}

type OpenURLSuccessMsg struct {
	Status string
	Opened bool
}

type OpenURLErrorMsg struct {
	Err error
}

type ClearStatusMsg struct {
	ID int
}

type PersistErrorMsg struct {
	Err error
}

func LoadNextCmd(loader Loader, generation uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pageTimeout)
		defer cancel()

		res, err := loader.LoadNext(ctx)
		if res.Generation == 0 {
			res.Generation = generation
		}
		return PageLoadedMsg{Generation: res.Generation, Result: res, Err: err}
	}
}

func LoadCachedCmd(service Service, criteria search.Criteria, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		entries, err := service.ListCached(ctx, criteria, limit)
		return CachedEntriesMsg{Criteria: criteria, Entries: entries, Err: err}
	}
}

func LoadEntryCmd(service Service, entryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		entry, err := service.Entry(ctx, entryID)
		return EntryLoadedMsg{EntryID: entryID, Entry: entry, Err: err}
	}
}

// ToggleArchivedCmd, SetFavouriteCmd and DeleteCmd report failures only.
// Success is observed through the dispatcher subscription.
func ToggleArchivedCmd(d Dispatcher, entryID string) tea.Cmd {
	return dispatchCmd(dispatch.ActionToggleArchived, entryID, func(ctx context.Context) error {
		_, err := d.ToggleArchived(ctx, entryID)
		return err
	})
}

func SetFavouriteCmd(d Dispatcher, entryID string, favourite bool) tea.Cmd {
	return dispatchCmd(dispatch.ActionFavour, entryID, func(ctx context.Context) error {
		_, err := d.SetFavourite(ctx, entryID, favourite)
		return err
	})
}

func DeleteCmd(d Dispatcher, c dispatch.Confirmation) tea.Cmd {
	return dispatchCmd(dispatch.ActionDelete, c.EntryID(), func(ctx context.Context) error {
		_, err := d.Delete(ctx, c)
		return err
	})
}

func dispatchCmd(action dispatch.Action, entryID string, run func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := run(ctx); err != nil {
			return ActionErrorMsg{Action: action, EntryID: entryID, Err: err}
		}
		return nil
	}
}

func OpenTagSessionCmd(session TagSession) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return TagSessionOpenedMsg{Session: session, Err: session.Open(ctx)}
	}
}

func CommitTagsCmd(session TagSession) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out, err := session.Commit(ctx)
		return TagCommitMsg{Session: session, Outcome: out, Err: err}
	}
}

func StartJobCmd(poller Poller, entryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		handle, err := poller.Start(ctx, entryID)
		return JobStartedMsg{EntryID: entryID, Handle: handle, Err: err}
	}
}

// RunJobCmd polls handle until the job stops. Running statuses are pushed to
// ch without blocking; a tick is dropped when the channel is full and counted
// in JobDoneMsg.Dropped.
func RunJobCmd(ctx context.Context, handle *job.Handle, ch chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		dropped := 0
		err := handle.Run(ctx, func(status job.Status) {
			select {
			case ch <- JobTickMsg{Handle: handle, Status: status}:
			default:
				dropped++
			}
		})
		return JobDoneMsg{Handle: handle, Err: err, Dropped: dropped}
	}
}

// ListenCmd waits for the next message pushed from outside the update loop.
// The model re-arms it after every delivery.
func ListenCmd(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func AddEntryCmd(service Service, rawURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		id, msg, err := service.AddEntry(ctx, rawURL)
		return AddEntryMsg{EntryID: id, Message: msg, Err: err}
	}
}

func SaveCriteriaCmd(service Service, c search.Criteria) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := service.RememberCriteria(ctx, c); err != nil {
			return PersistErrorMsg{Err: err}
		}
		return nil
	}
}

func OpenURLCmd(url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened URL in browser", Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

func CopyURLCmd(url string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy URL to clipboard")}
	}
}

func ClearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}
