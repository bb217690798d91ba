package himalaya

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/wesm/mailtui/internal/mime"
)

// Message is a fetched message as the program rendered it.
type Message struct {
	ID          string
	Folder      string
	Headers     []mime.Header // wire order, lower-cased keys
	Body        string
	Raw         string
	Attachments []string // attachment file names, when the text carried MIME parts

	parsed *mime.Message
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

func (m *Message) Subject() string   { return m.Header("subject") }
func (m *Message) From() string      { return m.Header("from") }
func (m *Message) To() string        { return m.Header("to") }
func (m *Message) Cc() string        { return m.Header("cc") }
func (m *Message) ReplyTo() string   { return m.Header("reply-to") }
func (m *Message) Date() string      { return m.Header("date") }
func (m *Message) MessageID() string { return m.Header("message-id") }

// Addresses returns the parsed addresses of an address header. ok is false
// when the header is present but does not parse as an address list.
func (m *Message) Addresses(key string) (addrs []mime.Address, ok bool) {
	if m.parsed != nil {
		if list := m.parsed.AddressList(key); len(list) > 0 {
			return list, true
		}
	}
	list, err := mime.ParseAddressList(m.Header(key))
	if err != nil {
		return nil, false
	}
	return list, true
}

// Sent returns the parsed Date header, or the zero time.
func (m *Message) Sent() time.Time {
	if m.parsed != nil && !m.parsed.Date.IsZero() {
		return m.parsed.Date
	}
	return mime.ParseDate(m.Date())
}

const opReadMessage = "read message"

// readHeaders are requested explicitly so replies can be threaded and
// addressed even when the program's default header set is smaller.
var readHeaders = []string{"From", "To", "Cc", "Reply-To", "Subject", "Date", "Message-ID"}

// ReadMessage fetches one message. With markSeen false the read is issued
// with --preview so the program leaves the message unseen.
func (c *Client) ReadMessage(ctx context.Context, folder, id string, markSeen bool) (*Message, error) {
	raw, err := runAttempts(ctx, c.logger, opReadMessage, []attempt[string]{
		{
			name: "json",
			run: func(ctx context.Context) (string, error) {
				out, err := c.readRaw(ctx, folder, id, markSeen, true)
				if err != nil {
					return "", err
				}
				return decodeMessageJSON(out)
			},
		},
		{
			name: "text",
			when: retryAsText,
			run: func(ctx context.Context) (string, error) {
				return c.readRaw(ctx, folder, id, markSeen, false)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	msg := parseMessage(raw)
	msg.ID = id
	msg.Folder = folder
	return msg, nil
}

// readRaw runs message read, dropping the --header flags once if the
// program does not know them.
func (c *Client) readRaw(ctx context.Context, folder, id string, markSeen, asJSON bool) (string, error) {
	build := func(withHeaders bool) []string {
		args := []string{"message", "read", "--folder", folder}
		if !markSeen {
			args = append(args, "--preview")
		}
		if withHeaders {
			for _, h := range readHeaders {
				args = append(args, "--header", h)
			}
		}
		return append(args, id)
	}

	res, err := c.run(ctx, request{op: opReadMessage, args: build(true), json: asJSON})
	if err != nil && isUnexpectedArgument(DiagnosticOf(err), "--header") {
		c.logger.Debug("himalaya rejected --header, retrying without it")
		res, err = c.run(ctx, request{op: opReadMessage, args: build(false), json: asJSON})
	}
	if err != nil {
		return "", err
	}
	return res.stdout, nil
}

// decodeMessageJSON accepts a JSON string or an object with a string
// content or message field.
func decodeMessageJSON(out string) (string, error) {
	trimmed := strings.TrimSpace(out)
	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return s, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return "", parseError(opReadMessage, "json", err, out)
	}
	for _, key := range []string{"content", "message"} {
		if err := json.Unmarshal(obj[key], &s); err == nil {
			return s, nil
		}
	}
	return "", parseError(opReadMessage, "json", errors.New("no message text in object"), out)
}

// parseMessage splits rendered text into headers and body. MIME structure
// is only decoded when the text declares a Content-Type.
func parseMessage(raw string) *Message {
	raw = strings.TrimLeft(raw, "\r\n")
	msg := &Message{Raw: raw}

	headers, body := mime.SplitHeaders(raw)
	parsed, err := mime.Parse([]byte(raw))
	if err != nil || len(parsed.Headers) == 0 {
		msg.Headers = headers
		msg.Body = body
		return msg
	}

	msg.Headers = parsed.Headers
	msg.Body = body
	msg.parsed = parsed
	if parsed.Header("content-type") != "" {
		msg.Body = parsed.GetBodyText()
		for _, a := range parsed.Attachments {
			if a.Filename != "" {
				msg.Attachments = append(msg.Attachments, a.Filename)
			}
		}
	}
	return msg
}
