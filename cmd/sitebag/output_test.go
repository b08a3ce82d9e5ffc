package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

func TestWriteEntries_Table(t *testing.T) {
	entries := []sitebag.Entry{
		{ID: "a1", Title: "First", Tags: []string{"favourite", "news"}, Created: sitebag.Timestamp{Time: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}},
		{ID: "a2", Title: "Second", Archived: true},
	}
	var buf bytes.Buffer
	if err := writeEntries(&buf, formatTable, entries); err != nil {
		t.Fatalf("writeEntries returned error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", buf.String())
	}
	if fields := strings.Fields(lines[1]); len(fields) != 5 || fields[1] != "2026-02-01" || fields[2] != "*" || fields[4] != "favourite,news" {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if fields := strings.Fields(lines[2]); fields[1] != "-" || fields[2] != "A" {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}

func TestWriteEntry_YAMLInlinesRow(t *testing.T) {
	var buf bytes.Buffer
	entry := sitebag.Entry{ID: "a1", Title: "First", URL: "https://example.com"}
	if err := writeEntry(&buf, formatYAML, entry, "Body text"); err != nil {
		t.Fatalf("writeEntry returned error: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got["id"] != "a1" || got["body"] != "Body text" || got["favourite"] != false {
		t.Fatalf("unexpected yaml: %v", got)
	}
	if _, ok := got["created"]; ok {
		t.Fatal("zero created time should be omitted")
	}
}

func TestWriteTags_SortsByCountThenName(t *testing.T) {
	cloud := sitebag.TagCloud{
		Tags:  []string{"b", "a", "c"},
		Cloud: map[string]int{"a": 2, "b": 2, "c": 5, "orphan": 1},
	}
	var buf bytes.Buffer
	if err := writeTags(&buf, formatTable, cloud); err != nil {
		t.Fatalf("writeTags returned error: %v", err)
	}

	var order []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n")[1:] {
		order = append(order, strings.Fields(line)[0])
	}
	if strings.Join(order, ",") != "c,a,b,orphan" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatJSON, formatYAML} {
		if err := validFormat(f); err != nil {
			t.Fatalf("validFormat(%q) returned error: %v", f, err)
		}
	}
	if err := validFormat("csv"); err == nil {
		t.Fatal("expected error for csv")
	}
}
