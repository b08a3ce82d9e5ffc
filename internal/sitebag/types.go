package sitebag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FavouriteTag is the well-known tag the server uses to mark favourites.
const FavouriteTag = "favourite"

// Entry is the subset of sitebag entry fields the client reads.
type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	ShortText string    `json:"shortText"`
	Content   string    `json:"content"`
	Archived  bool      `json:"archived"`
	Tags      []string  `json:"tags"`
	Created   Timestamp `json:"created"`

	// Muted marks archived rows shown under the "all" filter.
	Muted bool `json:"-"`
}

func (e Entry) IsFavourite() bool {
	for _, tag := range e.Tags {
		if tag == FavouriteTag {
			return true
		}
	}
	return false
}

// TagCloud is the global tag vocabulary with per-tag usage counts.
type TagCloud struct {
	Tags  []string       `json:"tags"`
	Cloud map[string]int `json:"cloud"`
}

// JobStatus is one reading of the re-extraction job. Progress carries every
// field of the status value except "running", uninterpreted.
type JobStatus struct {
	Running  bool
	Progress map[string]any
}

func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	running, _ := raw["running"].(bool)
	delete(raw, "running")
	s.Running = running
	s.Progress = raw
	return nil
}

// Timestamp accepts either an RFC3339 string or epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Value   json.RawMessage `json:"value"`
}
