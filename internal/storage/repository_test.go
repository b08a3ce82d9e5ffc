package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "sitebag.db"))
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	return repo
}

func at(day int) sitebag.Timestamp {
	return sitebag.Timestamp{Time: time.Date(2026, 2, day, 10, 0, 0, 0, time.UTC)}
}

func TestRepository_SaveAndListEntries(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	entries := []sitebag.Entry{
		{ID: "a1", Title: "Older", URL: "https://example.com/old", Created: at(1), Tags: []string{"news"}},
		{ID: "b2", Title: "Newer", URL: "https://example.com/new", Created: at(2)},
		{ID: "c3", Title: "Archived", URL: "https://example.com/arch", Created: at(3), Archived: true},
	}
	if err := repo.SaveEntries(ctx, entries); err != nil {
		t.Fatalf("SaveEntries returned error: %v", err)
	}

	listed, err := repo.ListEntries(ctx, 10, false)
	if err != nil {
		t.Fatalf("ListEntries returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 unarchived entries, got %d", len(listed))
	}
	if listed[0].ID != "b2" {
		t.Fatalf("expected newest first, got id=%s", listed[0].ID)
	}
	if len(listed[1].Tags) != 1 || listed[1].Tags[0] != "news" {
		t.Fatalf("tags not round-tripped: %+v", listed[1].Tags)
	}
	if !listed[1].Created.Equal(at(1).Time) {
		t.Fatalf("created not round-tripped: %v", listed[1].Created)
	}

	all, err := repo.ListEntries(ctx, 10, true)
	if err != nil {
		t.Fatalf("ListEntries returned error: %v", err)
	}
	if len(all) != 3 || !all[0].Archived {
		t.Fatalf("expected archived entry first when included, got %+v", all)
	}
}

func TestRepository_SaveEntries_Upserts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	entry := sitebag.Entry{ID: "x", Title: "Original", URL: "https://example.com/x", Created: at(1)}
	if err := repo.SaveEntries(ctx, []sitebag.Entry{entry}); err != nil {
		t.Fatalf("initial SaveEntries returned error: %v", err)
	}
	entry.Title = "Updated"
	if err := repo.SaveEntries(ctx, []sitebag.Entry{entry}); err != nil {
		t.Fatalf("second SaveEntries returned error: %v", err)
	}

	listed, err := repo.ListEntries(ctx, 1, true)
	if err != nil {
		t.Fatalf("ListEntries returned error: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Updated" {
		t.Fatalf("expected updated title, got %+v", listed)
	}
}

func TestRepository_DeleteEntry(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	if err := repo.SaveEntries(ctx, []sitebag.Entry{{ID: "x", Created: at(1)}}); err != nil {
		t.Fatalf("SaveEntries returned error: %v", err)
	}
	if err := repo.DeleteEntry(ctx, "x"); err != nil {
		t.Fatalf("DeleteEntry returned error: %v", err)
	}
	listed, err := repo.ListEntries(ctx, 5, true)
	if err != nil {
		t.Fatalf("ListEntries returned error: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no entries, got %d", len(listed))
	}
}

func TestRepository_Criteria(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	token, err := repo.LoadCriteria(ctx)
	if err != nil || token != "" {
		t.Fatalf("expected empty token, got %q %v", token, err)
	}
	for _, want := range []string{"archived=all&tag=news", "archived=false"} {
		if err := repo.SaveCriteria(ctx, want); err != nil {
			t.Fatalf("SaveCriteria returned error: %v", err)
		}
		got, err := repo.LoadCriteria(ctx)
		if err != nil {
			t.Fatalf("LoadCriteria returned error: %v", err)
		}
		if got != want {
			t.Fatalf("LoadCriteria = %q, want %q", got, want)
		}
	}
}
