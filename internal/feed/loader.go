// Package feed drives incremental loading of the entry list, one page at a
// time, for a single search criteria.
package feed

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

// PageSize is the number of entries requested per page.
const PageSize = 21

type PageFetcher interface {
	FetchPage(ctx context.Context, criteria search.Criteria, size, num int) ([]sitebag.Entry, error)
}

// Cursor tracks the next page to request. Once Terminal, no more pages are
// requested until the loader is reset.
type Cursor struct {
	Page     int
	Terminal bool
}

type Status int

const (
	// Skipped: nothing was requested (terminal cursor or a load in flight).
	Skipped Status = iota
	// Loaded: a non-empty page was appended.
	Loaded
	// Exhausted: the server returned an empty page; the cursor is terminal.
	Exhausted
	// Discarded: the response arrived after a Reset and was dropped.
	Discarded
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Exhausted:
		return "exhausted"
	case Discarded:
		return "discarded"
	default:
		return "skipped"
	}
}

type Result struct {
	Status     Status
	Page       int
	Appended   int
	Generation uint64
}

type Loader struct {
	fetcher  PageFetcher
	pageSize int
	logger   *log.Logger

	mu         sync.Mutex
	criteria   search.Criteria
	cursor     Cursor
	entries    []sitebag.Entry
	generation uint64
	inFlight   bool
}

type Option func(*Loader)

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPageSize overrides PageSize; used by tests and the list command.
func WithPageSize(size int) Option {
	return func(l *Loader) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

func NewLoader(fetcher PageFetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		pageSize: PageSize,
		logger:   log.New(io.Discard),
		criteria: search.Criteria{Archived: search.Excluded},
		cursor:   Cursor{Page: 1},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reset starts a new search. Any request still in flight belongs to the
// previous generation and its response will be discarded.
func (l *Loader) Reset(criteria search.Criteria) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.criteria = criteria
	l.cursor = Cursor{Page: 1}
	l.entries = nil
	// The old request may still be outstanding; the new search does not wait
	// for it and its response is dropped by the generation check.
	l.inFlight = false
	l.logger.Debug("feed reset", "criteria", search.Encode(criteria), "generation", l.generation)
	return l.generation
}

// LoadNext requests the next page unless the cursor is terminal or another
// request is outstanding. On failure the cursor is left unchanged so the
// next call retries the same page.
func (l *Loader) LoadNext(ctx context.Context) (Result, error) {
	l.mu.Lock()
	if l.cursor.Terminal || l.inFlight {
		res := Result{Status: Skipped, Page: l.cursor.Page, Generation: l.generation}
		l.mu.Unlock()
		return res, nil
	}
	l.inFlight = true
	gen := l.generation
	page := l.cursor.Page
	criteria := l.criteria
	l.mu.Unlock()

	fetched, err := l.fetcher.FetchPage(ctx, criteria, l.pageSize, page)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		l.logger.Debug("feed page discarded", "page", page, "generation", gen, "current", l.generation)
		return Result{Status: Discarded, Page: page, Generation: gen}, nil
	}
	l.inFlight = false

	if err != nil {
		l.logger.Warn("feed page failed", "page", page, "err", err)
		return Result{Status: Skipped, Page: page, Generation: gen}, fmt.Errorf("load page %d: %w", page, err)
	}

	if len(fetched) == 0 {
		if page == 1 {
			l.entries = nil
		}
		l.cursor.Terminal = true
		l.logger.Debug("feed exhausted", "page", page, "total", len(l.entries))
		return Result{Status: Exhausted, Page: page, Generation: gen}, nil
	}

	showAll := criteria.Archived == search.All
	for _, entry := range fetched {
		entry.Muted = showAll && entry.Archived
		l.entries = append(l.entries, entry)
	}
	l.cursor = Cursor{Page: page + 1}
	l.logger.Debug("feed page loaded", "page", page, "count", len(fetched), "total", len(l.entries))
	return Result{Status: Loaded, Page: page, Appended: len(fetched), Generation: gen}, nil
}

func (l *Loader) Entries() []sitebag.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sitebag.Entry(nil), l.entries...)
}

func (l *Loader) Cursor() Cursor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

func (l *Loader) Criteria() search.Criteria {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.criteria
}

func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

func (l *Loader) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// ReachedBottom reports whether a viewport scrolled to offset, showing
// viewport rows of a content-rows tall list, touches the end of the content.
func ReachedBottom(offset, viewport, content int) bool {
	if content <= 0 {
		return true
	}
	return offset+viewport >= content
}
