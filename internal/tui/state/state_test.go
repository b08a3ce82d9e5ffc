package state

import (
	"testing"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

func TestClampCursor(t *testing.T) {
	if got := ClampCursor(-1, 3); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := ClampCursor(3, 3); got != 2 {
		t.Fatalf("expected clamp to 2, got %d", got)
	}
	if got := ClampCursor(1, 3); got != 1 {
		t.Fatalf("expected keep 1, got %d", got)
	}
	if got := ClampCursor(4, 0); got != 0 {
		t.Fatalf("expected 0 for empty list, got %d", got)
	}
}

func TestPageStep(t *testing.T) {
	if got := PageStep(0, false); got != 10 {
		t.Fatalf("expected default step 10, got %d", got)
	}
	if got := PageStep(12, false); got != 6 {
		t.Fatalf("expected step 6, got %d", got)
	}
	if got := PageStep(12, true); got != 4 {
		t.Fatalf("expected step 4 with status, got %d", got)
	}
}

func TestCenteredWindow(t *testing.T) {
	cases := []struct {
		total, cursor, height int
		start, end            int
	}{
		{5, 3, 3, 2, 5},
		{5, 0, 3, 0, 3},
		{2, 1, 10, 0, 2},
		{0, 0, 5, 0, 0},
		{30, 15, 10, 10, 20},
	}
	for _, tc := range cases {
		start, end := CenteredWindow(tc.total, tc.cursor, tc.height)
		if start != tc.start || end != tc.end {
			t.Fatalf("CenteredWindow(%d,%d,%d) = (%d,%d), want (%d,%d)", tc.total, tc.cursor, tc.height, start, end, tc.start, tc.end)
		}
	}
}

func TestRestoreCursor(t *testing.T) {
	entries := []sitebag.Entry{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := EntryIndexByID(entries, "b"); got != 1 {
		t.Fatalf("expected entry index 1, got %d", got)
	}
	if got := RestoreCursor(entries, "c", 0); got != 2 {
		t.Fatalf("expected anchor restored to 2, got %d", got)
	}
	if got := RestoreCursor(entries, "gone", 7); got != 2 {
		t.Fatalf("expected clamped cursor 2, got %d", got)
	}
}
