// Package tags implements the per-entry tag editor: load the entry's tags and
// the global vocabulary, edit a working set locally, then commit it in one
// request.
package tags

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

var ErrNotReady = errors.New("tag session not ready")

type State int

const (
	New State = iota
	Initializing
	Ready
	Committing
	Committed
	Failed
	OpenFailed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Committing:
		return "committing"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	case OpenFailed:
		return "open-failed"
	default:
		return "new"
	}
}

type OutcomeKind string

const (
	Skipped     OutcomeKind = "skipped"
	Tagged      OutcomeKind = "tagged"
	UntaggedAll OutcomeKind = "untagall"
)

type Outcome struct {
	Kind    OutcomeKind
	Message string
	Tags    []string
}

type Client interface {
	EntryTags(ctx context.Context, id string) ([]string, error)
	Tags(ctx context.Context) (sitebag.TagCloud, error)
	SetTags(ctx context.Context, id string, tags []string) (string, error)
	Untag(ctx context.Context, id string, tags []string) (string, error)
}

type Session struct {
	client  Client
	entryID string
	logger  *log.Logger

	mu         sync.Mutex
	state      State
	original   []string
	working    map[string]bool
	vocabulary []string
	cloud      map[string]int
	lastErr    error
}

type Option func(*Session)

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSession(client Client, entryID string, opts ...Option) *Session {
	s := &Session{
		client:  client,
		entryID: entryID,
		logger:  log.New(io.Discard),
		working: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) EntryID() string { return s.entryID }

// Open fetches the entry's tags and the tag vocabulary concurrently. The
// session becomes Ready only when both succeed.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != New && s.state != OpenFailed {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("open tag session in state %s: %w", st, ErrNotReady)
	}
	s.state = Initializing
	s.mu.Unlock()

	var (
		entryTags []string
		cloud     sitebag.TagCloud
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tags, err := s.client.EntryTags(gctx, s.entryID)
		if err != nil {
			return fmt.Errorf("load entry tags: %w", err)
		}
		entryTags = tags
		return nil
	})
	g.Go(func() error {
		c, err := s.client.Tags(gctx)
		if err != nil {
			return fmt.Errorf("load tag vocabulary: %w", err)
		}
		cloud = c
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = OpenFailed
		s.lastErr = err
		s.logger.Warn("tag session open failed", "entry", s.entryID, "err", err)
		return err
	}

	s.original = normalize(entryTags)
	s.working = make(map[string]bool, len(s.original))
	for _, tag := range s.original {
		s.working[tag] = true
	}
	s.vocabulary = withFavourite(cloud.Tags)
	s.cloud = make(map[string]int, len(cloud.Cloud))
	for k, v := range cloud.Cloud {
		s.cloud[k] = v
	}
	s.state = Ready
	s.lastErr = nil
	s.logger.Debug("tag session ready", "entry", s.entryID, "tags", len(s.original), "vocabulary", len(s.vocabulary))
	return nil
}

// AddTag adds a trimmed, non-empty tag to the working set.
func (s *Session) AddTag(name string) bool {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editable() || name == "" || s.working[name] {
		return false
	}
	s.working[name] = true
	return true
}

func (s *Session) RemoveTag(name string) bool {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editable() || !s.working[name] {
		return false
	}
	delete(s.working, name)
	return true
}

func (s *Session) editable() bool {
	return s.state == Ready || s.state == Failed
}

// Commit sends the working set. An empty set removes every original tag
// instead. A commit that fails leaves the working set intact so it can be
// retried; a commit issued while another is outstanding is skipped.
func (s *Session) Commit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	switch s.state {
	case Committing:
		s.mu.Unlock()
		return Outcome{Kind: Skipped}, nil
	case Ready, Failed:
	default:
		st := s.state
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("commit tag session in state %s: %w", st, ErrNotReady)
	}
	s.state = Committing
	working := sortedKeys(s.working)
	original := append([]string(nil), s.original...)
	s.mu.Unlock()

	var (
		outcome Outcome
		err     error
	)
	if len(working) == 0 {
		outcome.Kind = UntaggedAll
		outcome.Tags = original
		outcome.Message, err = s.client.Untag(ctx, s.entryID, original)
	} else {
		outcome.Kind = Tagged
		outcome.Tags = working
		outcome.Message, err = s.client.SetTags(ctx, s.entryID, working)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		s.lastErr = err
		s.logger.Warn("tag commit failed", "entry", s.entryID, "kind", outcome.Kind, "err", err)
		return Outcome{}, fmt.Errorf("commit tags: %w", err)
	}
	s.state = Committed
	s.lastErr = nil
	s.logger.Info("tags committed", "entry", s.entryID, "kind", outcome.Kind, "tags", strings.Join(outcome.Tags, ","))
	return outcome, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Tags returns the working set, sorted.
func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.working)
}

func (s *Session) Original() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.original...)
}

func (s *Session) Vocabulary() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.vocabulary...)
}

func (s *Session) Cloud() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.cloud))
	for k, v := range s.cloud {
		out[k] = v
	}
	return out
}

// Suggest fuzzy-matches prefix against the vocabulary, skipping tags already
// in the working set. An empty prefix lists the vocabulary in order.
func (s *Session) Suggest(prefix string, limit int) []string {
	s.mu.Lock()
	candidates := make([]string, 0, len(s.vocabulary))
	for _, tag := range s.vocabulary {
		if !s.working[tag] {
			candidates = append(candidates, tag)
		}
	}
	s.mu.Unlock()

	prefix = strings.TrimSpace(prefix)
	var out []string
	if prefix == "" {
		out = candidates
	} else {
		for _, m := range fuzzy.Find(prefix, candidates) {
			out = append(out, m.Str)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalize(tags []string) []string {
	set := map[string]bool{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			set[tag] = true
		}
	}
	return sortedKeys(set)
}

func withFavourite(vocabulary []string) []string {
	out := normalize(vocabulary)
	for _, tag := range out {
		if tag == sitebag.FavouriteTag {
			return out
		}
	}
	out = append(out, sitebag.FavouriteTag)
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
