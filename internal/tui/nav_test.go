package tui

import (
	"testing"

	"github.com/wesm/mailtui/internal/himalaya"
)

func TestCalculateScrollOffset(t *testing.T) {
	tests := []struct {
		name                    string
		cursor, offset, visible int
		want                    int
	}{
		{"cursor visible", 3, 0, 10, 0},
		{"cursor above", 2, 5, 10, 2},
		{"cursor below", 12, 0, 10, 3},
		{"cursor at last visible", 9, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateScrollOffset(tt.cursor, tt.offset, tt.visible); got != tt.want {
				t.Errorf("calculateScrollOffset(%d, %d, %d) = %d, want %d",
					tt.cursor, tt.offset, tt.visible, got, tt.want)
			}
		})
	}
}

func TestNavigateList(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		cursor     int
		count      int
		wantCursor int
		wantScroll int
		handled    bool
	}{
		{"down", "j", 0, 30, 1, 0, true},
		{"down at end", "down", 29, 30, 29, 20, true},
		{"up at top", "k", 0, 30, 0, 0, true},
		{"page down", "pgdown", 0, 30, 10, 1, true},
		{"page down clamps", "pgdown", 25, 30, 29, 20, true},
		{"page up clamps", "pgup", 3, 30, 0, 0, true},
		{"end", "end", 0, 30, 29, 20, true},
		{"home", "home", 15, 30, 0, 0, true},
		{"other key", "x", 4, 30, 4, 0, false},
		{"empty list swallows navigation", "j", -1, 0, -1, 0, true},
		{"empty list ignores other keys", "x", -1, 0, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, scroll := tt.cursor, 0
			if tt.cursor >= 10 {
				scroll = tt.cursor - 9
			}
			handled := navigateList(tt.key, &cursor, &scroll, tt.count, 10)
			if handled != tt.handled {
				t.Errorf("handled = %v, want %v", handled, tt.handled)
			}
			if cursor != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", cursor, tt.wantCursor)
			}
			if handled && tt.count > 0 && scroll != tt.wantScroll {
				t.Errorf("scroll = %d, want %d", scroll, tt.wantScroll)
			}
		})
	}
}

func TestScrollText(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		start int
		lines int
		want  int
	}{
		{"down", "j", 0, 50, 1},
		{"up at top", "k", 0, 50, 0},
		{"page down", "pgdown", 0, 50, 10},
		{"space pages", " ", 35, 50, 40},
		{"page up", "pgup", 5, 50, 0},
		{"end", "end", 0, 50, 40},
		{"home", "home", 30, 50, 0},
		{"short text never scrolls", "j", 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scroll := tt.start
			if !scrollText(tt.key, &scroll, tt.lines, 10) {
				t.Fatal("key not handled")
			}
			if scroll != tt.want {
				t.Errorf("scroll = %d, want %d", scroll, tt.want)
			}
		})
	}

	scroll := 0
	if scrollText("x", &scroll, 50, 10) {
		t.Error("x should not be a scroll key")
	}
}

func TestSetRowsClampsCursor(t *testing.T) {
	lm := newListMode(makeEnvelopes(5))
	if lm.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", lm.cursor)
	}

	lm.cursor = 4
	lm.scroll = 4
	lm.setRows(makeEnvelopes(2))
	if lm.cursor != 1 || lm.scroll != 1 {
		t.Errorf("cursor/scroll = %d/%d, want 1/1", lm.cursor, lm.scroll)
	}

	lm.setRows(nil)
	if lm.cursor != -1 || lm.scroll != 0 {
		t.Errorf("empty rows: cursor/scroll = %d/%d, want -1/0", lm.cursor, lm.scroll)
	}
	if _, ok := lm.selected(); ok {
		t.Error("selected() on empty list should report false")
	}
}

func TestWithRowsUpdatesBackList(t *testing.T) {
	back := newListMode(makeEnvelopes(5))
	back.cursor = 3
	md := withRows(messageMode{msg: &himalaya.Message{ID: "2"}, back: back}, makeEnvelopes(2))

	mm, ok := md.(messageMode)
	if !ok {
		t.Fatalf("mode = %T, want messageMode", md)
	}
	if len(mm.back.rows) != 2 || mm.back.cursor != 1 {
		t.Errorf("back list = %d rows cursor %d, want 2 rows cursor 1", len(mm.back.rows), mm.back.cursor)
	}
}
