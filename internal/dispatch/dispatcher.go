// Package dispatch performs one-shot entry mutations and tells subscribers
// when one succeeds. It holds no entry state of its own.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type Action string

const (
	ActionDelete         Action = "delete"
	ActionToggleArchived Action = "togglearchived"
	ActionFavour         Action = "favour"
)

var ErrNotConfirmed = errors.New("delete not confirmed")

type Event struct {
	Action  Action
	EntryID string
	Message string
}

type Client interface {
	DeleteEntry(ctx context.Context, id string) (string, error)
	ToggleArchived(ctx context.Context, id string) (string, error)
	SetFavourite(ctx context.Context, id string, favourite bool) (string, error)
}

// Confirmation is proof that the user agreed to delete one entry. Only
// ConfirmDelete produces a usable value.
type Confirmation struct {
	entryID string
	ok      bool
}

func (c Confirmation) EntryID() string { return c.entryID }

// ConfirmDelete records the caller's confirmation for entryID.
func ConfirmDelete(entryID string) Confirmation {
	entryID = strings.TrimSpace(entryID)
	return Confirmation{entryID: entryID, ok: entryID != ""}
}

type Dispatcher struct {
	client Client
	logger *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

type Option func(*Dispatcher)

func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func New(client Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		logger: log.New(io.Discard),
		subs:   map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers fn for success events and returns a func that removes it.
func (d *Dispatcher) Subscribe(fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *Dispatcher) Delete(ctx context.Context, c Confirmation) (string, error) {
	if !c.ok {
		return "", fmt.Errorf("delete entry: %w", ErrNotConfirmed)
	}
	return d.dispatch(ctx, ActionDelete, c.entryID, func(ctx context.Context) (string, error) {
		return d.client.DeleteEntry(ctx, c.entryID)
	})
}

func (d *Dispatcher) ToggleArchived(ctx context.Context, entryID string) (string, error) {
	return d.dispatch(ctx, ActionToggleArchived, entryID, func(ctx context.Context) (string, error) {
		return d.client.ToggleArchived(ctx, entryID)
	})
}

func (d *Dispatcher) SetFavourite(ctx context.Context, entryID string, favourite bool) (string, error) {
	return d.dispatch(ctx, ActionFavour, entryID, func(ctx context.Context) (string, error) {
		return d.client.SetFavourite(ctx, entryID, favourite)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, action Action, entryID string, mutate func(context.Context) (string, error)) (string, error) {
	msg, err := mutate(ctx)
	if err != nil {
		d.logger.Warn("entry action failed", "action", action, "entry", entryID, "err", err)
		return "", fmt.Errorf("%s entry %s: %w", action, entryID, err)
	}
	d.logger.Info("entry action done", "action", action, "entry", entryID)
	d.notify(Event{Action: action, EntryID: entryID, Message: msg})
	return msg, nil
}

func (d *Dispatcher) notify(ev Event) {
	d.mu.Lock()
	subs := make([]func(Event), 0, len(d.subs))
	for i := 0; i < d.nextID; i++ {
		if fn, ok := d.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
