// Package mime parses the message text printed by the mail program into
// ordered headers, addresses and a readable body.
package mime

import (
	"bufio"
	"bytes"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"
)

// Header is a single header field. Key is lower-cased.
type Header struct {
	Key   string
	Value string
}

// Message represents a parsed email message.
type Message struct {
	Headers     []Header
	Date        time.Time
	From        []Address
	To          []Address
	Cc          []Address
	ReplyTo     []Address
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
}

// Address represents an email address with optional display name.
type Address struct {
	Name  string
	Email string
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// String renders the address as "Name <email>" or the bare email. Names
// with address-list specials such as commas are quoted.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	name := a.Name
	if strings.ContainsAny(name, `"(),.:;<>@[\]`) {
		name = `"` + quoteEscaper.Replace(name) + `"`
	}
	return name + " <" + a.Email + ">"
}

// ParseAddressList parses an address header value. Group syntax yields
// its members; an empty value yields nil.
func ParseAddressList(value string) ([]Address, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(value)
	if err != nil {
		return nil, err
	}
	addresses := make([]Address, 0, len(list))
	for _, addr := range list {
		if addr.Address != "" {
			addresses = append(addresses, Address{Name: addr.Name, Email: addr.Address})
		}
	}
	return addresses, nil
}

// AddressList returns the parsed addresses of an address header: from,
// to, cc or reply-to.
func (m *Message) AddressList(key string) []Address {
	switch strings.ToLower(key) {
	case "from":
		return m.From
	case "to":
		return m.To
	case "cc":
		return m.Cc
	case "reply-to":
		return m.ReplyTo
	}
	return nil
}

// Attachment describes a non-body part. Content is not retained.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int
	IsInline    bool
}

var headerLineRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*:`)

// LooksLikeHeaders reports whether text starts with a header field line.
func LooksLikeHeaders(text string) bool {
	return headerLineRe.MatchString(strings.TrimLeft(text, "\r\n"))
}

// Parse parses message text into a Message. Header order is preserved.
// Text that does not start with a header block parses as a body only.
func Parse(raw []byte) (*Message, error) {
	raw = bytes.TrimLeft(raw, "\r\n")
	if !LooksLikeHeaders(string(raw)) {
		return &Message{BodyText: string(raw)}, nil
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Headers:  readHeaders(raw),
		BodyText: env.Text,
		BodyHTML: env.HTML,
	}

	if dateStr := env.GetHeader("Date"); dateStr != "" {
		msg.Date = ParseDate(dateStr)
	}

	msg.From = parseAddressList(env, "From")
	msg.To = parseAddressList(env, "To")
	msg.Cc = parseAddressList(env, "Cc")
	msg.ReplyTo = parseAddressList(env, "Reply-To")

	msg.Attachments = append(msg.Attachments, processParts(env.Attachments, false)...)
	msg.Attachments = append(msg.Attachments, processParts(env.Inlines, true)...)

	return msg, nil
}

// readHeaders returns the header block in wire order with RFC 2047 words
// decoded. It falls back to SplitHeaders when the block is malformed.
func readHeaders(raw []byte) []Header {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		headers, _ := SplitHeaders(string(raw))
		return headers
	}

	mh := message.Header{Header: h}
	var headers []Header
	fields := mh.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		headers = append(headers, Header{
			Key:   strings.ToLower(fields.Key()),
			Value: strings.TrimSpace(value),
		})
	}
	return headers
}

// SplitHeaders splits text at the first blank line into header fields and
// body. Continuation lines are joined to the previous field. Lines that are
// not "Key: value" end the header block early and become part of the body.
func SplitHeaders(text string) ([]Header, string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var headers []Header
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && len(headers) > 0 {
			last := &headers[len(headers)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			continue
		}
		if !headerLineRe.MatchString(line) {
			break
		}
		key, value, _ := strings.Cut(line, ":")
		headers = append(headers, Header{
			Key:   strings.ToLower(strings.TrimSpace(key)),
			Value: strings.TrimSpace(value),
		})
	}
	if len(headers) == 0 {
		return nil, text
	}
	return headers, strings.Join(lines[i:], "\n")
}

// parseAddressList parses an address header using enmime's AddressList method.
func parseAddressList(env *enmime.Envelope, header string) []Address {
	list, err := env.AddressList(header)
	if err != nil || list == nil {
		return nil
	}

	addresses := make([]Address, 0, len(list))
	for _, addr := range list {
		if addr.Address == "" {
			continue
		}
		addresses = append(addresses, Address{
			Name:  addr.Name,
			Email: addr.Address,
		})
	}
	return addresses
}

// isBodyPart reports whether a text/plain or text/html part is body content:
// no filename and no explicit attachment disposition.
func isBodyPart(part *enmime.Part) bool {
	contentType := strings.ToLower(part.ContentType)
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if contentType != "text/plain" && contentType != "text/html" {
		return false
	}
	if part.FileName != "" {
		return false
	}
	disposition := strings.ToLower(part.Disposition)
	if idx := strings.Index(disposition, ";"); idx >= 0 {
		disposition = strings.TrimSpace(disposition[:idx])
	}
	return disposition != "attachment"
}

func processParts(parts []*enmime.Part, isInline bool) []Attachment {
	var result []Attachment
	for _, part := range parts {
		if isBodyPart(part) {
			continue
		}
		result = append(result, Attachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        len(part.Content),
			IsInline:    isInline,
		})
	}
	return result
}

// dateFormats lists the date layouts seen in headers and envelope listings.
var dateFormats = []string{
	time.RFC1123Z,                           // "Mon, 02 Jan 2006 15:04:05 -0700"
	time.RFC1123,                            // "Mon, 02 Jan 2006 15:04:05 MST"
	"Mon, 2 Jan 2006 15:04:05 -0700",        // Single-digit day
	"Mon, 2 Jan 2006 15:04:05 MST",          // Single-digit day with named TZ
	"2 Jan 2006 15:04:05 -0700",             // No weekday
	"02 Jan 2006 15:04:05 -0700",            // No weekday, zero-padded
	time.RFC822Z,                            // "02 Jan 06 15:04 -0700"
	time.RFC822,                             // "02 Jan 06 15:04 MST"
	time.ANSIC,                              // "Mon Jan _2 15:04:05 2006"
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)", // With parenthesized TZ
	time.RFC3339,                            // "2006-01-02T15:04:05Z07:00"
	"2006-01-02 15:04:05-07:00",             // envelope listings
	"2006-01-02 15:04-07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses a header or listing date. It returns the zero time when
// no layout matches.
func ParseDate(s string) time.Time {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}
	}

	baseStr := s
	if idx := strings.LastIndex(s, "("); idx > 0 {
		baseStr = strings.TrimSpace(s[:idx])
	}

	for _, candidate := range []string{baseStr, s} {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, candidate); err == nil {
				return t
			}
		}
		if baseStr == s {
			break
		}
	}
	return time.Time{}
}

// Block tags that should create line breaks when stripped
var blockTagRe = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|ul|ol|dl|dt|dd)[^>]*>`)

// Patterns for content-stripping tags (each needs separate pattern due to Go regex limitations)
var scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
var styleTagRe = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
var headTagRe = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags, decodes entities, and normalizes whitespace.
// Block elements become line breaks.
func StripHTML(rawHTML string) string {
	text := scriptTagRe.ReplaceAllString(rawHTML, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = headTagRe.ReplaceAllString(text, "")

	text = blockTagRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00A0", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}

// GetBodyText returns the best available body text.
// Prefers plain text, falls back to stripped HTML.
func (m *Message) GetBodyText() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	if m.BodyHTML != "" {
		return StripHTML(m.BodyHTML)
	}
	return ""
}

// Header returns the first value for key, case-insensitively.
func (m *Message) Header(key string) string {
	key = strings.ToLower(key)
	for _, h := range m.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}
