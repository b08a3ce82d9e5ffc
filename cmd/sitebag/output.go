package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type entryRow struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	URL       string   `json:"url" yaml:"url"`
	Created   string   `json:"created,omitempty" yaml:"created,omitempty"`
	Archived  bool     `json:"archived" yaml:"archived"`
	Favourite bool     `json:"favourite" yaml:"favourite"`
	Tags      []string `json:"tags" yaml:"tags"`
}

type tagRow struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int    `json:"count" yaml:"count"`
}

func toRow(e sitebag.Entry) entryRow {
	row := entryRow{
		ID:        e.ID,
		Title:     e.Title,
		URL:       e.URL,
		Archived:  e.Archived,
		Favourite: e.IsFavourite(),
		Tags:      e.Tags,
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if !e.Created.IsZero() {
		row.Created = e.Created.UTC().Format(time.RFC3339)
	}
	return row
}

func validFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return validFormat(format)
}

func writeEntries(w io.Writer, format string, entries []sitebag.Entry) error {
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, toRow(e))
	}
	if format != formatTable {
		return encode(w, format, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tFLAGS\tTITLE\tTAGS")
	for _, r := range rows {
		saved := "-"
		if r.Created != "" {
			saved = r.Created[:10]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, saved, flags(r), r.Title, strings.Join(r.Tags, ","))
	}
	return tw.Flush()
}

func writeEntry(w io.Writer, format string, e sitebag.Entry, body string) error {
	if format != formatTable {
		return encode(w, format, struct {
			entryRow `yaml:",inline"`
			Body     string `json:"body" yaml:"body"`
		}{toRow(e), body})
	}
	r := toRow(e)
	fmt.Fprintln(w, r.Title)
	fmt.Fprintf(w, "URL: %s\n", r.URL)
	if r.Created != "" {
		fmt.Fprintf(w, "Saved: %s\n", r.Created)
	}
	fmt.Fprintf(w, "Archived: %s  Favourite: %s\n", yesNo(r.Archived), yesNo(r.Favourite))
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	if body != "" {
		fmt.Fprintf(w, "\n%s\n", body)
	}
	return nil
}

// writeTags lists the cloud most-used first, ties by name.
func writeTags(w io.Writer, format string, cloud sitebag.TagCloud) error {
	seen := map[string]bool{}
	rows := make([]tagRow, 0, len(cloud.Tags))
	for _, tag := range cloud.Tags {
		seen[tag] = true
		rows = append(rows, tagRow{Tag: tag, Count: cloud.Cloud[tag]})
	}
	for tag, n := range cloud.Cloud {
		if !seen[tag] {
			rows = append(rows, tagRow{Tag: tag, Count: n})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Tag < rows[j].Tag
	})
	if format != formatTable {
		return encode(w, format, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tCOUNT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", r.Tag, r.Count)
	}
	return tw.Flush()
}

func flags(r entryRow) string {
	out := ""
	if r.Archived {
		out += "A"
	}
	if r.Favourite {
		out += "*"
	}
	if out == "" {
		return "-"
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
