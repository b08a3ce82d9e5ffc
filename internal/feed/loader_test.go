package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[int][]sitebag.Entry
	errs     map[int]error
	requests []int
	sizes    []int
	criteria []search.Criteria
}

func (f *fakeFetcher) FetchPage(_ context.Context, criteria search.Criteria, size, num int) ([]sitebag.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, num)
	f.sizes = append(f.sizes, size)
	f.criteria = append(f.criteria, criteria)
	if err := f.errs[num]; err != nil {
		return nil, err
	}
	return f.pages[num], nil
}

func makeEntries(prefix string, n int, archived bool) []sitebag.Entry {
	out := make([]sitebag.Entry, n)
	for i := range out {
		out[i] = sitebag.Entry{ID: fmt.Sprintf("%s-%d", prefix, i), Archived: archived}
	}
	return out
}

func TestLoadNext_AccumulatesUntilTerminal(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]sitebag.Entry{
		1: makeEntries("p1", PageSize, false),
		2: makeEntries("p2", 5, false),
	}}
	l := NewLoader(f)
	l.Reset(search.Criteria{})

	ctx := context.Background()
	statuses := []Status{}
	for i := 0; i < 5; i++ {
		res, err := l.LoadNext(ctx)
		if err != nil {
			t.Fatalf("LoadNext returned error: %v", err)
		}
		statuses = append(statuses, res.Status)
	}

	want := []Status{Loaded, Loaded, Exhausted, Skipped, Skipped}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("status[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}
	if got := len(l.Entries()); got != PageSize+5 {
		t.Fatalf("expected %d entries, got %d", PageSize+5, got)
	}
	if len(f.requests) != 3 {
		t.Fatalf("expected 3 page requests, got %v", f.requests)
	}
	if f.sizes[0] != PageSize {
		t.Fatalf("expected page size %d, got %d", PageSize, f.sizes[0])
	}
	if c := l.Cursor(); !c.Terminal || c.Page != 3 {
		t.Fatalf("unexpected cursor: %+v", c)
	}
}

func TestLoadNext_FullFirstPageThenEmpty(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]sitebag.Entry{1: makeEntries("p1", 21, false)}}
	l := NewLoader(f)
	l.Reset(search.Criteria{})

	ctx := context.Background()
	if _, err := l.LoadNext(ctx); err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	res, err := l.LoadNext(ctx)
	if err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	if res.Status != Exhausted || res.Page != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(l.Entries()) != 21 || !l.Cursor().Terminal {
		t.Fatalf("expected 21 entries and terminal cursor, got %d %+v", len(l.Entries()), l.Cursor())
	}
}

func TestLoadNext_EmptyFirstPageClearsResults(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]sitebag.Entry{1: makeEntries("old", 3, false)}}
	l := NewLoader(f)
	l.Reset(search.Criteria{})
	ctx := context.Background()
	if _, err := l.LoadNext(ctx); err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}

	// Simulate a host view that kept results while reloading page 1.
	l.mu.Lock()
	l.cursor = Cursor{Page: 1}
	l.mu.Unlock()
	f.pages[1] = nil

	res, err := l.LoadNext(ctx)
	if err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	if res.Status != Exhausted {
		t.Fatalf("expected exhausted, got %s", res.Status)
	}
	if len(l.Entries()) != 0 {
		t.Fatalf("expected results cleared, got %d", len(l.Entries()))
	}
	if !l.Cursor().Terminal {
		t.Fatal("expected terminal cursor")
	}
}

func TestLoadNext_FailureKeepsCursorForRetry(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{
		pages: map[int][]sitebag.Entry{1: makeEntries("p1", 2, false), 2: makeEntries("p2", 1, false)},
		errs:  map[int]error{2: boom},
	}
	l := NewLoader(f)
	l.Reset(search.Criteria{})
	ctx := context.Background()

	if _, err := l.LoadNext(ctx); err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	if _, err := l.LoadNext(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if c := l.Cursor(); c.Page != 2 || c.Terminal {
		t.Fatalf("cursor changed after failure: %+v", c)
	}

	delete(f.errs, 2)
	res, err := l.LoadNext(ctx)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if res.Status != Loaded || res.Page != 2 {
		t.Fatalf("unexpected retry result: %+v", res)
	}
	if len(l.Entries()) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(l.Entries()))
	}
}

func TestLoadNext_MutedOnlyForArchivedUnderAll(t *testing.T) {
	page := []sitebag.Entry{{ID: "a", Archived: true}, {ID: "b"}}
	f := &fakeFetcher{pages: map[int][]sitebag.Entry{1: page}}

	l := NewLoader(f)
	l.Reset(search.NewCriteria(search.All, ""))
	if _, err := l.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	got := l.Entries()
	if !got[0].Muted || got[1].Muted {
		t.Fatalf("unexpected muted flags under all: %+v", got)
	}

	l.Reset(search.NewCriteria(search.Included, ""))
	if _, err := l.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext returned error: %v", err)
	}
	for _, e := range l.Entries() {
		if e.Muted {
			t.Fatalf("entry muted outside all filter: %+v", e)
		}
	}
	if f.criteria[1].Archived != search.Included {
		t.Fatalf("fetcher did not receive new criteria: %+v", f.criteria[1])
	}
}

type blockingFetcher struct {
	calls   chan int
	release chan []sitebag.Entry
}

func (b *blockingFetcher) FetchPage(ctx context.Context, _ search.Criteria, _, num int) ([]sitebag.Entry, error) {
	b.calls <- num
	select {
	case entries := <-b.release:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLoadNext_ReentrancyGuard(t *testing.T) {
	b := &blockingFetcher{calls: make(chan int, 4), release: make(chan []sitebag.Entry)}
	l := NewLoader(b)
	l.Reset(search.Criteria{})

	done := make(chan Result, 1)
	go func() {
		res, _ := l.LoadNext(context.Background())
		done <- res
	}()
	<-b.calls

	if !l.Busy() {
		t.Fatal("expected loader to report busy")
	}
	res, err := l.LoadNext(context.Background())
	if err != nil || res.Status != Skipped {
		t.Fatalf("expected skipped while in flight, got %+v %v", res, err)
	}

	b.release <- makeEntries("p1", 2, false)
	if first := <-done; first.Status != Loaded {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if len(b.calls) != 0 {
		t.Fatalf("expected exactly one request, got %d extra", len(b.calls))
	}
	if len(l.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(l.Entries()))
	}
}

func TestLoadNext_StaleResponseAfterResetIsDiscarded(t *testing.T) {
	b := &blockingFetcher{calls: make(chan int, 4), release: make(chan []sitebag.Entry)}
	l := NewLoader(b)
	l.Reset(search.NewCriteria(search.Excluded, "old"))

	done := make(chan Result, 1)
	go func() {
		res, _ := l.LoadNext(context.Background())
		done <- res
	}()
	<-b.calls

	l.Reset(search.NewCriteria(search.Excluded, "new"))
	b.release <- makeEntries("stale", 4, false)

	if res := <-done; res.Status != Discarded {
		t.Fatalf("expected discarded, got %+v", res)
	}
	if len(l.Entries()) != 0 {
		t.Fatalf("stale entries leaked into new search: %d", len(l.Entries()))
	}
	if c := l.Cursor(); c.Page != 1 || c.Terminal {
		t.Fatalf("cursor touched by stale response: %+v", c)
	}

	go func() {
		res, _ := l.LoadNext(context.Background())
		done <- res
	}()
	if page := <-b.calls; page != 1 {
		t.Fatalf("expected new search to request page 1, got %d", page)
	}
	b.release <- makeEntries("fresh", 1, false)
	if res := <-done; res.Status != Loaded {
		t.Fatalf("unexpected result for new search: %+v", res)
	}
}

func TestLoadNext_ResetDoesNotWaitForOutstandingRequest(t *testing.T) {
	b := &blockingFetcher{calls: make(chan int, 4), release: make(chan []sitebag.Entry)}
	l := NewLoader(b)
	l.Reset(search.NewCriteria(search.Excluded, "old"))

	results := make(chan Result, 2)
	load := func() {
		res, _ := l.LoadNext(context.Background())
		results <- res
	}
	go load()
	<-b.calls

	l.Reset(search.NewCriteria(search.Excluded, "new"))
	go load()
	if page := <-b.calls; page != 1 {
		t.Fatalf("expected new search to start at page 1 while the old request is outstanding, got %d", page)
	}

	b.release <- makeEntries("x", 2, false)
	b.release <- makeEntries("x", 2, false)
	statuses := map[Status]int{}
	for i := 0; i < 2; i++ {
		statuses[(<-results).Status]++
	}
	if statuses[Loaded] != 1 || statuses[Discarded] != 1 {
		t.Fatalf("expected one loaded and one discarded page, got %v", statuses)
	}
	if n := len(l.Entries()); n != 2 {
		t.Fatalf("expected only the new search's page, got %d entries", n)
	}
	if c := l.Cursor(); c.Page != 2 || l.Busy() {
		t.Fatalf("unexpected cursor after both responses: %+v busy=%v", c, l.Busy())
	}
}

func TestReachedBottom(t *testing.T) {
	cases := []struct {
		offset, viewport, content int
		want                      bool
	}{
		{0, 10, 0, true},
		{0, 10, 30, false},
		{20, 10, 30, true},
		{25, 10, 30, true},
		{19, 10, 30, false},
	}
	for _, tc := range cases {
		if got := ReachedBottom(tc.offset, tc.viewport, tc.content); got != tc.want {
			t.Fatalf("ReachedBottom(%d,%d,%d) = %v, want %v", tc.offset, tc.viewport, tc.content, got, tc.want)
		}
	}
}
