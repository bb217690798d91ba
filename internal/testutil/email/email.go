// Package email provides test helpers for constructing message text the way
// the mail program prints it on "message read".
package email

import (
	"sort"
	"strings"
)

// Options configures a rendered message for testing. Empty header fields
// are omitted, except From, To and Subject which get defaults.
type Options struct {
	From      string
	To        string
	Cc        string
	ReplyTo   string
	Subject   string
	Date      string
	MessageID string
	Body      string
	Headers   map[string]string
	CRLF      bool
}

// Render builds the header block, a blank separator line and the body.
func Render(opts Options) string {
	nl := "\n"
	if opts.CRLF {
		nl = "\r\n"
	}

	if opts.From == "" {
		opts.From = "sender@example.com"
	}
	if opts.To == "" {
		opts.To = "recipient@example.com"
	}
	if opts.Subject == "" {
		opts.Subject = "Test"
	}

	var b strings.Builder
	write := func(key, value string) {
		if value != "" {
			b.WriteString(key + ": " + value + nl)
		}
	}
	write("From", opts.From)
	write("To", opts.To)
	write("Cc", opts.Cc)
	write("Reply-To", opts.ReplyTo)
	write("Subject", opts.Subject)
	write("Date", opts.Date)
	write("Message-ID", opts.MessageID)

	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, opts.Headers[k])
	}

	b.WriteString(nl)
	b.WriteString(strings.ReplaceAll(opts.Body, "\n", nl))
	return b.String()
}
