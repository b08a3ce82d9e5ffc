package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glabrego/sitebag-cli/internal/feed"
	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
	"github.com/glabrego/sitebag-cli/internal/storage"
)

func TestIntegration_LoadPagesAndRestoreCriteria(t *testing.T) {
	if os.Getenv("SITEBAG_INTEGRATION") != "1" {
		t.Skip("set SITEBAG_INTEGRATION=1 to run integration tests")
	}

	username := os.Getenv("SITEBAG_USERNAME")
	password := os.Getenv("SITEBAG_PASSWORD")
	if username == "" || password == "" {
		t.Skip("SITEBAG_USERNAME and SITEBAG_PASSWORD are required")
	}
	serverURL := os.Getenv("SITEBAG_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:9995"
	}

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "sitebag-integration.db"))
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	svc := NewService(sitebag.NewClient(serverURL, username, password, nil), repo, nil)
	criteria := search.NewCriteria(search.All, "")
	loader := feed.NewLoader(svc)
	loader.Reset(criteria)

	for i := 0; i < 3 && !loader.Cursor().Terminal; i++ {
		if _, err := loader.LoadNext(ctx); err != nil {
			t.Fatalf("LoadNext returned error: %v", err)
		}
	}

	cached, err := svc.ListCached(ctx, criteria, 1000)
	if err != nil {
		t.Fatalf("ListCached returned error: %v", err)
	}
	if len(cached) != len(loader.Entries()) {
		t.Fatalf("expected cache to hold %d entries, got %d", len(loader.Entries()), len(cached))
	}

	if err := svc.RememberCriteria(ctx, criteria); err != nil {
		t.Fatalf("RememberCriteria returned error: %v", err)
	}
	if got := svc.LastCriteria(ctx); !got.Equal(criteria) {
		t.Fatalf("LastCriteria = %+v, want %+v", got, criteria)
	}
}
