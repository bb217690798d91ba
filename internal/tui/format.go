package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/wesm/mailtui/internal/himalaya"
)

// padRight pads a string with spaces to fill width terminal cells.
// Uses lipgloss.Width to correctly handle ANSI codes and full-width characters.
func padRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// Newlines and tabs are flattened so a cell never breaks the row layout.
func truncateRunes(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// wrapText wraps text to fit within width terminal cells.
// Uses runewidth to correctly handle full-width characters (CJK, emoji, etc.)
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.ReplaceAll(line, "\t", "    ")
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			// Prefer breaking at a space if we found one in the latter half
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return result
}

// truncateToWidth returns the prefix of s that fits within maxWidth visual columns.
// Uses ANSI-aware truncation to preserve escape sequences.
func truncateToWidth(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "")
}

// skipToWidth returns the suffix of s starting after skipWidth visual columns.
func skipToWidth(s string, skipWidth int) string {
	return ansi.Cut(s, skipWidth, 10000)
}

// formatEnvelopeDate renders the listing date, falling back to the program's
// own text when it could not be parsed.
func formatEnvelopeDate(env himalaya.Envelope) string {
	if env.Date.IsZero() {
		return env.RawDate
	}
	return env.Date.Local().Format("2006-01-02 15:04")
}

// messageDateLayout is the Date line of the message view, in local time.
const messageDateLayout = "Mon, 2 Jan 2006 15:04 -0700"

// formatMessageDate renders the message's Date header in local time,
// keeping the header text when it does not parse.
func formatMessageDate(msg *himalaya.Message) string {
	sent := msg.Sent()
	if sent.IsZero() {
		return msg.Date()
	}
	return sent.Local().Format(messageDateLayout)
}

// flagColumn renders the envelope flags as a fixed four-cell column:
// unread, flagged, answered, attachment.
func flagColumn(env himalaya.Envelope) string {
	var sb strings.Builder
	mark := func(on bool, glyph byte) {
		if on {
			sb.WriteByte(glyph)
		} else {
			sb.WriteByte(' ')
		}
	}
	mark(!env.Seen, '*')
	mark(env.Flagged, '!')
	mark(env.Answered, 'R')
	mark(env.HasAttachment, '@')
	return sb.String()
}

// accountLabel names an account for display.
func accountLabel(account string) string {
	if account == "" {
		return "(default)"
	}
	return account
}
