package app

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type SitebagClient interface {
	ListEntries(ctx context.Context, params url.Values, size, num int) ([]sitebag.Entry, error)
	GetEntry(ctx context.Context, id string, meta bool) (sitebag.Entry, error)
	AddEntry(ctx context.Context, rawURL string) (string, string, error)
	Tags(ctx context.Context) (sitebag.TagCloud, error)
}

type Repository interface {
	SaveEntries(ctx context.Context, entries []sitebag.Entry) error
	ListEntries(ctx context.Context, limit int, includeArchived bool) ([]sitebag.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	SaveCriteria(ctx context.Context, token string) error
	LoadCriteria(ctx context.Context) (string, error)
}

// Service composes the remote client with the local cache. It is the page
// fetcher behind the feed loader.
type Service struct {
	client SitebagClient
	repo   Repository
	logger *log.Logger
}

func NewService(client SitebagClient, repo Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{client: client, repo: repo, logger: logger}
}

// FetchPage requests one page for criteria. The page is written to the cache
// on a best-effort basis; a cache failure never fails the fetch.
func (s *Service) FetchPage(ctx context.Context, criteria search.Criteria, size, num int) ([]sitebag.Entry, error) {
	entries, err := s.client.ListEntries(ctx, criteria.Values(), size, num)
	if err != nil {
		return nil, fmt.Errorf("fetch entries from sitebag: %w", err)
	}
	if s.repo != nil && len(entries) > 0 {
		if err := s.repo.SaveEntries(ctx, entries); err != nil {
			s.logger.Warn("cache entries failed", "page", num, "err", err)
		}
	}
	return entries, nil
}

// ListCached returns cached entries that fit the archived filter of criteria.
// Tag and text filters are applied by the server only, so cached results
// are shown for unfiltered searches alone.
func (s *Service) ListCached(ctx context.Context, criteria search.Criteria, limit int) ([]sitebag.Entry, error) {
	if s.repo == nil || len(criteria.Tags) > 0 || criteria.Query != "" {
		return nil, nil
	}
	entries, err := s.repo.ListEntries(ctx, limit, criteria.Archived != search.Excluded)
	if err != nil {
		return nil, fmt.Errorf("load entries from cache: %w", err)
	}
	filtered := entries[:0]
	for _, e := range entries {
		if criteria.Archived == search.Included && !e.Archived {
			continue
		}
		e.Muted = criteria.Archived == search.All && e.Archived
		filtered = append(filtered, e)
	}
	return filtered, nil
}

// Entry fetches one entry with its full content.
func (s *Service) Entry(ctx context.Context, id string) (sitebag.Entry, error) {
	entry, err := s.client.GetEntry(ctx, id, true)
	if err != nil {
		return sitebag.Entry{}, fmt.Errorf("fetch entry %s: %w", id, err)
	}
	return entry, nil
}

func (s *Service) AddEntry(ctx context.Context, rawURL string) (string, string, error) {
	id, msg, err := s.client.AddEntry(ctx, rawURL)
	if err != nil {
		return "", "", fmt.Errorf("add entry: %w", err)
	}
	return id, msg, nil
}

func (s *Service) TagCloud(ctx context.Context) (sitebag.TagCloud, error) {
	cloud, err := s.client.Tags(ctx)
	if err != nil {
		return sitebag.TagCloud{}, fmt.Errorf("fetch tags: %w", err)
	}
	return cloud, nil
}

// Forget drops a deleted entry from the cache.
func (s *Service) Forget(ctx context.Context, id string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		s.logger.Warn("forget cached entry failed", "entry", id, "err", err)
	}
}

// LastCriteria restores the saved search. A missing or unreadable token
// yields the default criteria.
func (s *Service) LastCriteria(ctx context.Context) search.Criteria {
	def := search.Criteria{Archived: search.Excluded}
	if s.repo == nil {
		return def
	}
	token, err := s.repo.LoadCriteria(ctx)
	if err != nil {
		s.logger.Warn("load saved criteria failed", "err", err)
		return def
	}
	c, err := search.Decode(token)
	if err != nil {
		s.logger.Warn("saved criteria unreadable", "token", token, "err", err)
		return def
	}
	return c
}

func (s *Service) RememberCriteria(ctx context.Context, c search.Criteria) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveCriteria(ctx, search.Encode(c)); err != nil {
		return fmt.Errorf("save criteria to cache: %w", err)
	}
	return nil
}
