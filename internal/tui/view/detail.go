package view

import (
	"strings"
	"time"

	article "github.com/glabrego/sitebag-cli/internal/render/article"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type WrapFunc func(string, int) []string

func DetailMetaLines(entry sitebag.Entry, width int, wrap WrapFunc) []string {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "(untitled)"
	}
	lines := make([]string, 0, 12)
	lines = append(lines, wrap(title, width)...)
	lines = append(lines, strings.Repeat("=", max(1, min(width, visibleLen(title)))))
	lines = append(lines, "")

	if entry.URL != "" {
		lines = append(lines, wrap("URL: "+entry.URL, width)...)
	}
	if !entry.Created.IsZero() {
		lines = append(lines, "Saved: "+entry.Created.UTC().Format(time.RFC3339))
	}
	lines = append(lines, "Archived: "+yesNo(entry.Archived))
	lines = append(lines, "Favourite: "+yesNo(entry.IsFavourite()))
	if tags := TagLabel(entry.Tags); tags != "" {
		lines = append(lines, wrap("Tags: "+tags, width)...)
	}
	return lines
}

// DetailLines is the metadata header followed by the rendered content,
// shifted right by margin columns.
func DetailLines(entry sitebag.Entry, width, margin int, wrap WrapFunc) []string {
	lines := DetailMetaLines(entry, width, wrap)
	if content := article.ContentLines(entry, width); len(content) > 0 {
		lines = append(lines, "")
		lines = append(lines, content...)
	}
	if margin <= 0 {
		return lines
	}
	pad := strings.Repeat(" ", margin)
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return lines
}

func DetailMaxTop(linesLen, bodyHeight int) int {
	maxTop := linesLen - bodyHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func RenderDetailLines(lines []string, top, maxLines int) string {
	if len(lines) == 0 {
		return ""
	}
	if top < 0 {
		top = 0
	}
	if top > len(lines)-1 {
		top = len(lines) - 1
	}
	end := len(lines)
	if maxLines > 0 && top+maxLines < end {
		end = top + maxLines
	}
	return strings.Join(lines[top:end], "\n") + "\n"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
