package app

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type fakeClient struct {
	entries []sitebag.Entry
	err     error
	params  url.Values
	size    int
	num     int
}

func (f *fakeClient) ListEntries(_ context.Context, params url.Values, size, num int) ([]sitebag.Entry, error) {
	f.params, f.size, f.num = params, size, num
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeClient) GetEntry(_ context.Context, id string, meta bool) (sitebag.Entry, error) {
	if !meta {
		return sitebag.Entry{}, errors.New("expected meta request")
	}
	return sitebag.Entry{ID: id, Content: "<p>hi</p>"}, f.err
}

func (f *fakeClient) AddEntry(context.Context, string) (string, string, error) {
	return "new-id", "Entry added", f.err
}

func (f *fakeClient) Tags(context.Context) (sitebag.TagCloud, error) {
	return sitebag.TagCloud{Tags: []string{"news"}}, f.err
}

type fakeRepo struct {
	saved    []sitebag.Entry
	cached   []sitebag.Entry
	deleted  []string
	token    string
	saveErr  error
	listErr  error
	loadErr  error
	archived bool
}

func (f *fakeRepo) SaveEntries(_ context.Context, entries []sitebag.Entry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, entries...)
	return nil
}

func (f *fakeRepo) ListEntries(_ context.Context, _ int, includeArchived bool) ([]sitebag.Entry, error) {
	f.archived = includeArchived
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]sitebag.Entry(nil), f.cached...), nil
}

func (f *fakeRepo) DeleteEntry(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) SaveCriteria(_ context.Context, token string) error {
	f.token = token
	return nil
}

func (f *fakeRepo) LoadCriteria(context.Context) (string, error) {
	return f.token, f.loadErr
}

func TestService_FetchPage_SendsCriteriaAndCaches(t *testing.T) {
	client := &fakeClient{entries: []sitebag.Entry{{ID: "a"}}}
	repo := &fakeRepo{}
	svc := NewService(client, repo, nil)

	entries, err := svc.FetchPage(context.Background(), search.NewCriteria(search.All, "rust", "news"), 21, 3)
	if err != nil {
		t.Fatalf("FetchPage returned error: %v", err)
	}
	if len(entries) != 1 || len(repo.saved) != 1 {
		t.Fatalf("unexpected entries=%v saved=%v", entries, repo.saved)
	}
	if client.params.Get("archived") != "all" || client.params.Get("tag") != "news" || client.params.Get("q") != "rust" {
		t.Fatalf("unexpected params: %v", client.params)
	}
	if client.size != 21 || client.num != 3 {
		t.Fatalf("unexpected paging: size=%d num=%d", client.size, client.num)
	}
}

func TestService_FetchPage_CacheFailureIsNotFatal(t *testing.T) {
	client := &fakeClient{entries: []sitebag.Entry{{ID: "a"}}}
	svc := NewService(client, &fakeRepo{saveErr: errors.New("disk full")}, nil)

	entries, err := svc.FetchPage(context.Background(), search.Criteria{}, 21, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected entries despite cache failure, got %v %v", entries, err)
	}
}

func TestService_FetchPage_PropagatesFetchError(t *testing.T) {
	boom := &sitebag.TransportError{Op: "list entries", Err: errors.New("refused")}
	svc := NewService(&fakeClient{err: boom}, &fakeRepo{}, nil)

	_, err := svc.FetchPage(context.Background(), search.Criteria{}, 21, 1)
	if !sitebag.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestService_ListCached(t *testing.T) {
	repo := &fakeRepo{cached: []sitebag.Entry{{ID: "a", Archived: true}, {ID: "b"}}}
	svc := NewService(&fakeClient{}, repo, nil)
	ctx := context.Background()

	all, err := svc.ListCached(ctx, search.NewCriteria(search.All, ""), 21)
	if err != nil {
		t.Fatalf("ListCached returned error: %v", err)
	}
	if len(all) != 2 || !all[0].Muted || all[1].Muted || !repo.archived {
		t.Fatalf("unexpected all listing: %+v", all)
	}

	only, err := svc.ListCached(ctx, search.NewCriteria(search.Included, ""), 21)
	if err != nil {
		t.Fatalf("ListCached returned error: %v", err)
	}
	if len(only) != 1 || only[0].ID != "a" {
		t.Fatalf("unexpected archived listing: %+v", only)
	}

	filtered, err := svc.ListCached(ctx, search.NewCriteria(search.All, "", "news"), 21)
	if err != nil || filtered != nil {
		t.Fatalf("expected no cached rows for tag search, got %v %v", filtered, err)
	}
}

func TestService_Criteria(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(&fakeClient{}, repo, nil)
	ctx := context.Background()

	if c := svc.LastCriteria(ctx); !c.Equal(search.Criteria{}) {
		t.Fatalf("expected default criteria, got %+v", c)
	}
	want := search.NewCriteria(search.All, "go", "news")
	if err := svc.RememberCriteria(ctx, want); err != nil {
		t.Fatalf("RememberCriteria returned error: %v", err)
	}
	if got := svc.LastCriteria(ctx); !got.Equal(want) {
		t.Fatalf("LastCriteria = %+v, want %+v", got, want)
	}

	repo.token = "q=%zz"
	if got := svc.LastCriteria(ctx); !got.Equal(search.Criteria{}) {
		t.Fatalf("expected default for unreadable token, got %+v", got)
	}
}

func TestService_EntryAndForget(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(&fakeClient{}, repo, nil)
	ctx := context.Background()

	entry, err := svc.Entry(ctx, "e1")
	if err != nil || entry.Content == "" {
		t.Fatalf("unexpected entry: %+v %v", entry, err)
	}
	svc.Forget(ctx, "e1")
	if len(repo.deleted) != 1 || repo.deleted[0] != "e1" {
		t.Fatalf("expected cache delete, got %v", repo.deleted)
	}
}
