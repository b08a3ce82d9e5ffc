package view

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
	tuitheme "github.com/glabrego/sitebag-cli/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type EntryLineParams struct {
	Entry        sitebag.Entry
	Now          time.Time
	RelativeTime bool
	ShowTags     bool
	Active       bool
	Width        int
}

func RenderEntryLine(p EntryLineParams, th tuitheme.Theme) string {
	date := p.Entry.Created.UTC().Format(time.DateOnly)
	if p.RelativeTime {
		date = RelativeTimeLabel(p.Now, p.Entry.Created.Time)
	}

	cursorMarker := " "
	if p.Active {
		cursorMarker = ">"
	}
	favMarker := " "
	if p.Entry.IsFavourite() {
		favMarker = "★"
	}
	prefix := fmt.Sprintf("  %s%s ", cursorMarker, favMarker)
	dateLabel := "[" + date + "]"

	label := strings.TrimSpace(p.Entry.Title)
	if label == "" {
		label = strings.TrimSpace(p.Entry.URL)
	}
	if p.ShowTags {
		if tags := TagLabel(p.Entry.Tags); tags != "" {
			label += " " + tags
		}
	}

	available := p.Width - visibleLen(prefix) - 1 - visibleLen(dateLabel)
	if available < 1 {
		available = 1
	}
	label = truncateRunes(label, available)
	styled := th.StyleEntryTitle(p.Entry, label)
	gap := p.Width - visibleLen(prefix) - visibleLen(label) - visibleLen(dateLabel)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(p.Active, prefix+styled+strings.Repeat(" ", gap)+dateLabel)
}

// TagLabel renders tags as "#a #b", leaving out the favourite marker tag.
func TagLabel(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == sitebag.FavouriteTag || strings.TrimSpace(tag) == "" {
			continue
		}
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}

func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	d := now.Sub(then)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
