package tui

import (
	"strings"

	"github.com/wesm/mailtui/internal/himalaya"
)

// modeKind tags the active session mode.
type modeKind int

const (
	modeList modeKind = iota
	modeMessage
	modeFolders
	modeCompose
)

// mode is the active session view. Leaving a mode discards its data;
// back fields keep exactly what is needed to return.
type mode interface{ kind() modeKind }

// listMode shows one page of envelopes. cursor is -1 when rows is empty.
type listMode struct {
	rows   []himalaya.Envelope
	cursor int
	scroll int
}

// messageMode shows an opened message.
type messageMode struct {
	msg    *himalaya.Message
	scroll int
	back   listMode
}

// foldersMode is the folder picker.
type foldersMode struct {
	folders []himalaya.Folder
	cursor  int
	scroll  int
	back    listMode
}

func (listMode) kind() modeKind    { return modeList }
func (messageMode) kind() modeKind { return modeMessage }
func (foldersMode) kind() modeKind { return modeFolders }
func (composeMode) kind() modeKind { return modeCompose }

func newListMode(rows []himalaya.Envelope) listMode {
	lm := listMode{cursor: -1}
	lm.setRows(rows)
	return lm
}

// setRows replaces the rows, keeping the selection clamped to them.
func (l *listMode) setRows(rows []himalaya.Envelope) {
	l.rows = rows
	switch {
	case len(rows) == 0:
		l.cursor = -1
		l.scroll = 0
	case l.cursor < 0:
		l.cursor = 0
	case l.cursor >= len(rows):
		l.cursor = len(rows) - 1
	}
	if l.scroll > l.cursor && l.cursor >= 0 {
		l.scroll = l.cursor
	}
}

// selected returns the envelope under the cursor.
func (l listMode) selected() (himalaya.Envelope, bool) {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return himalaya.Envelope{}, false
	}
	return l.rows[l.cursor], true
}

// withRows applies a refreshed listing to the list the mode shows or
// returns to.
func withRows(md mode, rows []himalaya.Envelope) mode {
	switch md := md.(type) {
	case listMode:
		md.setRows(rows)
		return md
	case messageMode:
		md.back.setRows(rows)
		return md
	case foldersMode:
		md.back.setRows(rows)
		return md
	}
	return newListMode(rows)
}

// calculateScrollOffset computes the new scroll offset to keep cursor visible within pageSize.
func calculateScrollOffset(cursor, currentOffset, pageSize int) int {
	if cursor < currentOffset {
		return cursor
	}
	if cursor >= currentOffset+pageSize {
		return cursor - pageSize + 1
	}
	return currentOffset
}

// navigateList moves cursor within itemCount rows. It reports whether the
// key was a navigation key.
func navigateList(key string, cursor, scroll *int, itemCount, visible int) bool {
	if itemCount == 0 {
		switch key {
		case "up", "k", "down", "j", "home", "end", "pgup", "pgdown":
			return true
		}
		return false
	}

	switch key {
	case "up", "k":
		if *cursor > 0 {
			*cursor--
		}
	case "down", "j":
		if *cursor < itemCount-1 {
			*cursor++
		}
	case "pgup":
		*cursor = max(*cursor-visible, 0)
	case "pgdown":
		*cursor = min(*cursor+visible, itemCount-1)
	case "home":
		*cursor = 0
	case "end":
		*cursor = itemCount - 1
	default:
		return false
	}
	*scroll = calculateScrollOffset(*cursor, *scroll, visible)
	return true
}

// scrollText moves a text scroll position for key, bounded by lineCount.
func scrollText(key string, scroll *int, lineCount, visible int) bool {
	maxScroll := max(lineCount-visible, 0)
	switch key {
	case "up", "k":
		*scroll--
	case "down", "j":
		*scroll++
	case "pgup":
		*scroll -= visible
	case "pgdown", " ":
		*scroll += visible
	case "home":
		*scroll = 0
	case "end":
		*scroll = maxScroll
	default:
		return false
	}
	*scroll = min(max(*scroll, 0), maxScroll)
	return true
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
