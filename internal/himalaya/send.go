package himalaya

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// Draft is a message to send.
type Draft struct {
	To        string
	Subject   string
	Body      string
	From      string // optional sender override
	InReplyTo string // Message-ID being answered, without angle brackets
	ReplyToID string // envelope id being answered, flagged after sending
}

const opSend = "send message"

// SendCopyWarning is returned as the status when the message was delivered
// but the program could not store the sent copy.
const SendCopyWarning = "Email sent, but saving a copy via IMAP failed. " +
	"Your server may be legacy/incompatible with this append flow. " +
	"Try disabling message.send.save-copy in config."

// Send delivers a draft. The returned string is a human-readable status.
func (c *Client) Send(ctx context.Context, draft Draft) (string, error) {
	raw, err := serializeDraft(draft, time.Now())
	if err != nil {
		return "", &ClientError{Op: opSend, Kind: KindRejected, Diagnostic: err.Error(), Err: err}
	}

	c.logger.Debug("sending message",
		"from", orNone(draft.From), "to", draft.To,
		"subject_len", len(draft.Subject), "body_len", len(draft.Body),
		"in_reply_to", orNone(draft.InReplyTo))

	res, err := c.run(ctx, request{op: opSend, args: []string{"message", "send"}, stdin: raw})
	if err != nil {
		if KindOf(err) != KindInvocationFailed && isSendCopyFailure(DiagnosticOf(err)) {
			c.logger.Warn("message sent but save-copy failed", "diag", DiagnosticOf(err))
			return SendCopyWarning, nil
		}
		return "", err
	}
	if res.stdout != "" {
		return res.stdout, nil
	}
	return "Email sent.", nil
}

// MarkAnswered sets the answered flag on a message.
func (c *Client) MarkAnswered(ctx context.Context, folder, id string) error {
	_, err := c.run(ctx, request{
		op:   "mark answered",
		args: []string{"flag", "add", "--folder", folder, id, "answered"},
	})
	return err
}

// serializeDraft renders the draft as a text/plain UTF-8 message with CRLF
// line endings. Addresses that do not parse are passed through as typed so
// the program can report them.
func serializeDraft(d Draft, now time.Time) (string, error) {
	var h mail.Header
	h.SetDate(now)
	setAddressHeader(&h, "From", d.From)
	setAddressHeader(&h, "To", d.To)
	if subject := strings.TrimSpace(d.Subject); subject != "" {
		h.SetSubject(subject)
	}
	if ref := strings.Trim(strings.TrimSpace(d.InReplyTo), "<>"); ref != "" {
		h.SetMsgIDList("In-Reply-To", []string{ref})
		h.SetMsgIDList("References", []string{ref})
	}
	if err := h.GenerateMessageID(); err != nil {
		return "", err
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "8bit")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(w, normalizeCRLF(d.Body)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func setAddressHeader(h *mail.Header, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	addrs, err := mail.ParseAddressList(value)
	if err != nil || len(addrs) == 0 {
		h.SetText(key, value)
		return
	}
	h.SetAddressList(key, addrs)
}

func normalizeCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
