package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

const criteriaKey = "criteria"

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  url TEXT NOT NULL,
  short_text TEXT,
  archived INTEGER NOT NULL DEFAULT 0,
  tags TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL,
  fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ui_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveEntries upserts a page of entries in one transaction. Content is not
// cached; the detail view always fetches it.
func (r *Repository) SaveEntries(ctx context.Context, entries []sitebag.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO entries (id, title, url, short_text, archived, tags, created_at, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  title=excluded.title,
  url=excluded.url,
  short_text=excluded.short_text,
  archived=excluded.archived,
  tags=excluded.tags,
  created_at=excluded.created_at,
  fetched_at=excluded.fetched_at
`)
	if err != nil {
		return fmt.Errorf("prepare save statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, entry := range entries {
		tags, err := json.Marshal(nonNil(entry.Tags))
		if err != nil {
			return fmt.Errorf("encode tags for entry %s: %w", entry.ID, err)
		}
		if _, err := stmt.ExecContext(
			ctx,
			entry.ID,
			entry.Title,
			entry.URL,
			entry.ShortText,
			entry.Archived,
			string(tags),
			entry.Created.UTC().Format(time.RFC3339Nano),
			now,
		); err != nil {
			return fmt.Errorf("save entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListEntries returns cached entries, newest first. Archived entries are
// skipped unless includeArchived is set.
func (r *Repository) ListEntries(ctx context.Context, limit int, includeArchived bool) ([]sitebag.Entry, error) {
	if limit < 1 {
		limit = 21
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, url, short_text, archived, tags, created_at
FROM entries
WHERE ? OR archived = 0
ORDER BY created_at DESC
LIMIT ?
`, includeArchived, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]sitebag.Entry, 0, limit)
	for rows.Next() {
		var (
			entry     sitebag.Entry
			shortText sql.NullString
			tags      string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.URL, &shortText, &entry.Archived, &tags, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.ShortText = shortText.String
		if err := json.Unmarshal([]byte(tags), &entry.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for entry %s: %w", entry.ID, err)
		}
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse entry created_at %q: %w", createdAt, err)
		}
		entry.Created = sitebag.Timestamp{Time: created}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

// SaveCriteria stores the last criteria token so the next session can
// restore the same search.
func (r *Repository) SaveCriteria(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ui_state (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, criteriaKey, token)
	if err != nil {
		return fmt.Errorf("save criteria: %w", err)
	}
	return nil
}

// LoadCriteria returns the stored token, or "" when none was saved.
func (r *Repository) LoadCriteria(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ui_state WHERE key = ?`, criteriaKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load criteria: %w", err)
	}
	return token, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
