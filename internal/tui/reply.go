package tui

import (
	"regexp"
	"strings"

	"github.com/wesm/mailtui/internal/himalaya"
	"github.com/wesm/mailtui/internal/mime"
	"github.com/wesm/mailtui/internal/textutil"
)

const (
	replySnippetLines = 5
	replyLineLimit    = 160
	replySnippetTitle = "----- Original message snippet (max 5 lines) -----"
)

var (
	bracketAddrRe = regexp.MustCompile(`<([^>]+@[^>]+)>`)
	plainAddrRe   = regexp.MustCompile(`([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`)
)

// replyDraft is the prefilled content of a reply.
type replyDraft struct {
	to        string
	subject   string
	body      string
	inReplyTo string
}

// buildReply prefills a reply to msg. own lists the addresses (sender,
// account name) that reply-all must not send back to.
func buildReply(msg *himalaya.Message, replyAll bool, own ...string) replyDraft {
	return replyDraft{
		to:        replyRecipients(msg, replyAll, own...),
		subject:   replySubject(msg.Subject()),
		body:      quoteSnippet(msg.Body),
		inReplyTo: msg.MessageID(),
	}
}

// replyRecipients returns Reply-To or From. With replyAll, To and Cc are
// added, deduplicated by address and without own addresses.
func replyRecipients(msg *himalaya.Message, replyAll bool, own ...string) string {
	senders := addressEntries(msg, "reply-to")
	if len(senders) == 0 {
		senders = addressEntries(msg, "from")
	}
	sender := joinEntries(senders)
	if !replyAll {
		return sender
	}

	exclude := ownKeys(own)
	var recipients []recipient
	seen := make(map[string]bool)
	for _, list := range [][]recipient{senders, addressEntries(msg, "to"), addressEntries(msg, "cc")} {
		for _, r := range list {
			if r.key == "" || exclude[r.key] || seen[r.key] {
				continue
			}
			seen[r.key] = true
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return sender
	}
	return joinEntries(recipients)
}

// recipient is one address of a header with its lower-cased mailbox.
type recipient struct {
	key  string
	text string
}

// addressEntries lists the addresses of header key. Headers that do not
// parse as an address list are split on separators instead.
func addressEntries(msg *himalaya.Message, key string) []recipient {
	var entries []recipient
	if addrs, ok := msg.Addresses(key); ok {
		for _, a := range addrs {
			entries = append(entries, recipient{key: strings.ToLower(a.Email), text: a.String()})
		}
		return entries
	}
	for _, part := range splitAddresses(msg.Header(key)) {
		entries = append(entries, recipient{key: addressKey(part), text: part})
	}
	return entries
}

func joinEntries(entries []recipient) string {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.text
	}
	return strings.Join(texts, ", ")
}

// ownKeys returns the mailboxes in own. Values that hold no address, such
// as account names, are ignored.
func ownKeys(own []string) map[string]bool {
	keys := make(map[string]bool)
	for _, o := range own {
		if addrs, err := mime.ParseAddressList(o); err == nil {
			for _, a := range addrs {
				keys[strings.ToLower(a.Email)] = true
			}
			continue
		}
		if k := addressKey(o); k != "" {
			keys[k] = true
		}
	}
	return keys
}

// splitAddresses splits an address list on commas and semicolons.
func splitAddresses(raw string) []string {
	var parts []string
	for _, p := range strings.Split(strings.ReplaceAll(raw, ";", ","), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// addressKey returns the lower-cased mailbox of an address, or "" when raw
// holds no address.
func addressKey(raw string) string {
	if raw == "" {
		return ""
	}
	if m := bracketAddrRe.FindStringSubmatch(raw); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := plainAddrRe.FindStringSubmatch(raw); m != nil {
		return strings.ToLower(m[1])
	}
	if strings.Contains(raw, "@") {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return ""
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "":
		return "Re:"
	case strings.HasPrefix(strings.ToLower(subject), "re:"):
		return subject
	default:
		return "Re: " + subject
	}
}

// quoteSnippet quotes the first lines of body below two blank lines for
// the reply text.
func quoteSnippet(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	out := []string{"", "", replySnippetTitle}
	for _, line := range lines[:min(len(lines), replySnippetLines)] {
		if line == "" {
			out = append(out, ">")
			continue
		}
		out = append(out, "> "+textutil.TruncateRunes(line, replyLineLimit))
	}
	if len(lines) > replySnippetLines {
		out = append(out, "> ...")
	}
	return strings.Join(out, "\n")
}
