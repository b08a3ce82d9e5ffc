package state

import "github.com/glabrego/sitebag-cli/internal/sitebag"

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

// CenteredWindow returns the [start, end) rows to draw so the cursor sits
// in the middle of a height-row viewport where possible.
func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

func EntryIndexByID(entries []sitebag.Entry, entryID string) int {
	for i, entry := range entries {
		if entry.ID == entryID {
			return i
		}
	}
	return -1
}

// RestoreCursor keeps the selection on anchorID when it is still listed,
// otherwise clamps the previous position.
func RestoreCursor(entries []sitebag.Entry, anchorID string, previous int) int {
	if anchorID != "" {
		if idx := EntryIndexByID(entries, anchorID); idx >= 0 {
			return idx
		}
	}
	return ClampCursor(previous, len(entries))
}
