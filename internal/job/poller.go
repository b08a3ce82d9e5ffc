// Package job observes the server-side re-extraction job by polling its
// status until it stops running.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

// Interval is the delay between a status response and the next request.
const Interval = 200 * time.Millisecond

// ErrHandleSpent is returned when Run is called on a handle that already ran.
var ErrHandleSpent = errors.New("job handle already used")

type Status = sitebag.JobStatus

type Client interface {
	StartReextract(ctx context.Context, entryID string) (string, error)
	ReextractStatus(ctx context.Context) (sitebag.JobStatus, error)
}

type Poller struct {
	client   Client
	interval time.Duration
	wait     func(ctx context.Context, d time.Duration) error
	logger   *log.Logger
}

type Option func(*Poller)

func WithLogger(logger *log.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWait replaces the inter-poll sleep; tests use it to avoid real delays.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		if wait != nil {
			p.wait = wait
		}
	}
}

func NewPoller(client Client, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		interval: Interval,
		wait:     sleep,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle is one accepted job. It is run exactly once.
type Handle struct {
	poller  *Poller
	EntryID string
	Message string

	mu      sync.Mutex
	used    bool
	done    chan struct{}
	polls   int
	lastErr error
}

// Start submits the job. A rejected or failed submission returns an error and
// no handle; nothing is polled.
func (p *Poller) Start(ctx context.Context, entryID string) (*Handle, error) {
	msg, err := p.client.StartReextract(ctx, entryID)
	if err != nil {
		p.logger.Warn("reextract not started", "entry", entryID, "err", err)
		return nil, fmt.Errorf("start reextract: %w", err)
	}
	p.logger.Info("reextract started", "entry", entryID, "message", msg)
	return &Handle{poller: p, EntryID: entryID, Message: msg, done: make(chan struct{})}, nil
}

// Run polls until the job reports it is no longer running, calling onTick
// for every running status. Requests are strictly sequential. A nil return
// means the job completed; a status request failure ends the run with that
// error.
func (h *Handle) Run(ctx context.Context, onTick func(Status)) error {
	h.mu.Lock()
	if h.used {
		h.mu.Unlock()
		return ErrHandleSpent
	}
	h.used = true
	h.mu.Unlock()

	err := h.run(ctx, onTick)

	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()
	close(h.done)
	return err
}

func (h *Handle) run(ctx context.Context, onTick func(Status)) error {
	p := h.poller
	for {
		status, err := p.client.ReextractStatus(ctx)
		h.mu.Lock()
		h.polls++
		h.mu.Unlock()
		if err != nil {
			p.logger.Warn("reextract status failed", "entry", h.EntryID, "err", err)
			return fmt.Errorf("poll reextract status: %w", err)
		}
		if !status.Running {
			p.logger.Info("reextract finished", "entry", h.EntryID, "polls", h.Polls())
			return nil
		}
		if onTick != nil {
			onTick(status)
		}
		if err := p.wait(ctx, p.interval); err != nil {
			return fmt.Errorf("poll reextract status: %w", err)
		}
	}
}

// Done is closed once Run returns.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Polls is the number of status requests issued so far.
func (h *Handle) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
