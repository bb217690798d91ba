package himalaya

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/wesm/mailtui/internal/mime"
)

// Envelope is one row of a folder listing.
type Envelope struct {
	ID            string
	From          string
	Subject       string
	Date          time.Time // zero when RawDate could not be parsed
	RawDate       string
	Seen          bool
	Flagged       bool
	Answered      bool
	HasAttachment bool
}

const opListEnvelopes = "list envelopes"

// ListEnvelopes returns one page of a folder. page is 0-based.
func (c *Client) ListEnvelopes(ctx context.Context, folder string, page, pageSize int) ([]Envelope, error) {
	args := []string{"envelope", "list", "--folder", folder, "--page", strconv.Itoa(page + 1)}
	if pageSize > 0 {
		args = append(args, "--page-size", strconv.Itoa(pageSize))
	}

	rows, err := runAttempts(ctx, c.logger, opListEnvelopes, []attempt[[]Envelope]{
		{
			name: "json",
			run: func(ctx context.Context) ([]Envelope, error) {
				res, err := c.run(ctx, request{op: opListEnvelopes, args: args, json: true})
				if err != nil {
					return nil, err
				}
				return parseEnvelopesJSON(res.stdout)
			},
		},
		{
			name: "text",
			when: retryAsText,
			run: func(ctx context.Context) ([]Envelope, error) {
				res, err := c.run(ctx, request{op: opListEnvelopes, args: args})
				if err != nil {
					return nil, err
				}
				return parseEnvelopesText(res.stdout)
			},
		},
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed envelopes", "folder", folder, "page", page, "count", len(rows))
	return rows, nil
}

// unwrapArray returns the JSON array at the top of data, or under one of
// keys when data is an object.
func unwrapArray(data string, keys ...string) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return nil, errors.New("empty output")
	}

	var items []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, errors.New("no list in object")
}

// jsonEnvelope mirrors the fields the program emits. Everything except id
// is optional and decoded leniently.
type jsonEnvelope struct {
	ID            json.RawMessage `json:"id"`
	Flags         json.RawMessage `json:"flags"`
	Subject       json.RawMessage `json:"subject"`
	From          json.RawMessage `json:"from"`
	Sender        json.RawMessage `json:"sender"`
	Date          json.RawMessage `json:"date"`
	HasAttachment json.RawMessage `json:"has_attachment"`
}

func parseEnvelopesJSON(out string) ([]Envelope, error) {
	items, err := unwrapArray(out, "envelopes", "data")
	if err != nil {
		return nil, parseError(opListEnvelopes, "json", err, out)
	}

	rows := make([]Envelope, 0, len(items))
	for i, item := range items {
		var je jsonEnvelope
		if err := json.Unmarshal(item, &je); err != nil {
			return nil, parseError(opListEnvelopes, "json", errors.New("envelope "+strconv.Itoa(i)+" is not an object"), out)
		}
		id := jsonID(je.ID)
		if id == "" {
			return nil, parseError(opListEnvelopes, "json", errors.New("envelope "+strconv.Itoa(i)+" has no id"), out)
		}

		env := Envelope{
			ID:      id,
			Subject: jsonString(je.Subject),
			RawDate: jsonString(je.Date),
			Seen:    true,
		}
		env.From = jsonAddress(je.From)
		if env.From == "" {
			env.From = jsonAddress(je.Sender)
		}
		env.Date = mime.ParseDate(env.RawDate)
		var attached bool
		if json.Unmarshal(je.HasAttachment, &attached) == nil {
			env.HasAttachment = attached
		}

		var flags []string
		if json.Unmarshal(je.Flags, &flags) == nil {
			env.Seen = false
			for _, f := range flags {
				switch strings.ToLower(strings.TrimPrefix(f, "\\")) {
				case "seen":
					env.Seen = true
				case "flagged":
					env.Flagged = true
				case "answered":
					env.Answered = true
				}
			}
		}
		rows = append(rows, env)
	}
	return rows, nil
}

// jsonID accepts a non-empty string or a number.
func jsonID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func jsonString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// jsonAddress renders an address given as a string or as {name, addr}.
func jsonAddress(raw json.RawMessage) string {
	if s := jsonString(raw); s != "" {
		return s
	}
	var a struct {
		Name string `json:"name"`
		Addr string `json:"addr"`
	}
	if json.Unmarshal(raw, &a) != nil {
		return ""
	}
	return mime.Address{Name: strings.TrimSpace(a.Name), Email: strings.TrimSpace(a.Addr)}.String()
}

var (
	envelopeIDRe = regexp.MustCompile(`^\d+$`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// isSeparatorLine reports whether line is table decoration only.
func isSeparatorLine(line string) bool {
	for _, r := range line {
		if !strings.ContainsRune("-=+|│─┼├┤┌┐└┘┬┴ ", r) {
			return false
		}
	}
	return true
}

func hasCellDelimiter(line string) bool {
	return strings.ContainsAny(line, "|│")
}

// splitDelimited splits a |-delimited row, dropping the outer border cells
// but keeping empty inner cells.
func splitDelimited(line string) []string {
	cells := strings.Split(strings.ReplaceAll(strings.TrimSpace(line), "│", "|"), "|")
	if len(cells) > 0 && strings.TrimSpace(cells[0]) == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// columnStarts returns the display column at which each header cell starts.
func columnStarts(header string, names []string) []int {
	starts := make([]int, 0, len(names))
	rest := header
	offset := 0
	for _, name := range names {
		idx := strings.Index(rest, name)
		if idx < 0 {
			return nil
		}
		starts = append(starts, offset+runewidth.StringWidth(rest[:idx]))
		offset += runewidth.StringWidth(rest[:idx+len(name)])
		rest = rest[idx+len(name):]
	}
	return starts
}

// cutColumns splits line at the header's display columns. Each cut is
// moved onto a cell boundary: a cut inside a gap moves to the next cell
// unless that cell starts past the following column, and a cut inside a
// word moves to the nearer end of the word, so a cell that overflows its
// column stays whole.
func cutColumns(line string, starts []int) []string {
	runes := []rune(line)
	pos := make([]int, len(runes)+1)
	for i, r := range runes {
		pos[i+1] = pos[i] + runewidth.RuneWidth(r)
	}
	isSpace := func(i int) bool { return i < len(runes) && unicode.IsSpace(runes[i]) }
	wordStart := func(i int) bool { return i < len(runes) && !isSpace(i) && (i == 0 || isSpace(i-1)) }
	nextWord := func(i int) int {
		for i < len(runes) && !wordStart(i) {
			i++
		}
		return i
	}

	cuts := make([]int, len(starts)+1)
	cuts[len(starts)] = len(runes)
	for c := 1; c < len(starts); c++ {
		i := 0
		for i < len(runes) && pos[i] < starts[c] {
			i++
		}
		switch {
		case i >= len(runes) || wordStart(i):
		case isSpace(i):
			// A gap running past the next column means this cell is empty.
			next := nextWord(i)
			if c+1 == len(starts) || next == len(runes) || pos[next] < starts[c+1] {
				i = next
			}
		default:
			back := i
			for back > 0 && !isSpace(back-1) {
				back--
			}
			fwd := nextWord(i)
			if back > cuts[c-1] && (fwd >= len(runes) || pos[i]-pos[back] <= pos[fwd]-pos[i]) {
				i = back
			} else {
				i = fwd
			}
		}
		cuts[c] = max(i, cuts[c-1])
	}

	out := make([]string, len(starts))
	for c := range starts {
		out[c] = strings.TrimSpace(string(runes[cuts[c]:cuts[c+1]]))
	}
	return out
}

// tableLayout maps header names to cell indices.
type tableLayout struct {
	index   map[string]int
	columns int
	starts  []int // nil for delimited tables
}

func (t *tableLayout) cell(cells []string, names ...string) string {
	for _, n := range names {
		if i, ok := t.index[n]; ok && i < len(cells) {
			return cells[i]
		}
	}
	return ""
}

func splitRow(line string, layout *tableLayout) []string {
	if hasCellDelimiter(line) {
		cells := splitDelimited(line)
		if layout != nil {
			cells = layout.mergeSubject(cells)
		}
		return cells
	}
	if layout != nil && layout.starts != nil {
		if cells, ok := alignedChunks(line, layout.starts); ok {
			return cells
		}
		return cutColumns(line, layout.starts)
	}
	return multiSpaceRe.Split(strings.TrimSpace(line), -1)
}

// alignedChunks splits line on runs of two or more spaces and accepts the
// result when there is one chunk per column and each chunk overlaps its
// column's span.
func alignedChunks(line string, starts []int) ([]string, bool) {
	type chunk struct {
		text       string
		start, end int
	}
	var chunks []chunk
	var cur strings.Builder
	curStart, pos, spaces := -1, 0, 0
	flush := func() {
		if curStart >= 0 {
			text := strings.TrimSpace(cur.String())
			chunks = append(chunks, chunk{text, curStart, curStart + runewidth.StringWidth(text)})
		}
		cur.Reset()
		curStart = -1
	}
	for _, r := range line {
		if unicode.IsSpace(r) {
			spaces++
			if spaces == 2 {
				flush()
			}
		} else {
			if curStart < 0 {
				curStart = pos
			} else if spaces == 1 {
				cur.WriteRune(' ')
			}
			spaces = 0
			cur.WriteRune(r)
		}
		pos += runewidth.RuneWidth(r)
	}
	flush()

	if len(chunks) != len(starts) {
		return nil, false
	}
	cells := make([]string, len(chunks))
	for i, ch := range chunks {
		if ch.end <= starts[i] {
			return nil, false
		}
		if i+1 < len(starts) && ch.start >= starts[i+1] {
			return nil, false
		}
		cells[i] = ch.text
	}
	return cells, true
}

// mergeSubject folds surplus cells of a delimited row back into the
// subject, which is the only free-text column that may contain a '|'.
func (t *tableLayout) mergeSubject(cells []string) []string {
	extra := len(cells) - t.columns
	i, ok := t.index["SUBJECT"]
	if extra <= 0 || !ok || i+extra >= len(cells) {
		return cells
	}
	merged := append([]string{}, cells[:i]...)
	merged = append(merged, strings.Join(cells[i:i+extra+1], " | "))
	return append(merged, cells[i+extra+1:]...)
}

// parseEnvelopesText parses the program's envelope table. An empty output
// or a header with no rows is an empty page.
func parseEnvelopesText(out string) ([]Envelope, error) {
	var layout *tableLayout
	var rows []Envelope
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r ")
		if strings.TrimSpace(line) == "" || isSeparatorLine(line) {
			continue
		}

		cells := splitRow(line, layout)
		if layout == nil && isEnvelopeHeader(cells) {
			layout = newTableLayout(line, cells)
			continue
		}
		if len(cells) == 0 || !envelopeIDRe.MatchString(cells[0]) {
			continue
		}
		rows = append(rows, envelopeFromCells(cells, layout))
	}

	if len(rows) == 0 && layout == nil && strings.TrimSpace(out) != "" {
		return nil, parseError(opListEnvelopes, "text", errors.New("no envelope table found"), out)
	}
	return rows, nil
}

func isEnvelopeHeader(cells []string) bool {
	return len(cells) > 1 && strings.EqualFold(cells[0], "ID")
}

func newTableLayout(line string, cells []string) *tableLayout {
	layout := &tableLayout{index: make(map[string]int, len(cells)), columns: len(cells)}
	names := make([]string, 0, len(cells))
	for i, c := range cells {
		layout.index[strings.ToUpper(c)] = i
		names = append(names, c)
	}
	if !hasCellDelimiter(line) {
		layout.starts = columnStarts(line, names)
	}
	return layout
}

// envelopeFromCells builds an Envelope from a row. Without a header the
// order is id, optional flags, subject, sender, date.
func envelopeFromCells(cells []string, layout *tableLayout) Envelope {
	var flags, subject, from, date string
	if layout != nil {
		flags = layout.cell(cells, "FLAGS", "FLAG")
		subject = layout.cell(cells, "SUBJECT")
		from = layout.cell(cells, "FROM", "SENDER")
		date = layout.cell(cells, "DATE")
	} else {
		rest := cells[1:]
		if len(rest) > 0 && isFlagCell(rest[0]) {
			flags, rest = rest[0], rest[1:]
		}
		for i, dst := range []*string{&subject, &from, &date} {
			if i < len(rest) {
				*dst = rest[i]
			}
		}
	}

	env := Envelope{
		ID:      cells[0],
		Subject: subject,
		From:    from,
		RawDate: date,
		Date:    mime.ParseDate(date),
	}
	applyFlagGlyphs(&env, flags)
	return env
}

const flagGlyphs = "*✷!⚑↵R@ "

func isFlagCell(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(flagGlyphs, r) {
			return false
		}
	}
	return true
}

func applyFlagGlyphs(env *Envelope, flags string) {
	env.Seen = !strings.ContainsAny(flags, "*✷")
	env.Flagged = strings.ContainsAny(flags, "!⚑")
	env.Answered = strings.ContainsAny(flags, "↵R")
	env.HasAttachment = strings.Contains(flags, "@")
}
