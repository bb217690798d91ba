package tui

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Re:"},
		{"   ", "Re:"},
		{"Lunch", "Re: Lunch"},
		{"Re: Lunch", "Re: Lunch"},
		{"RE: Lunch", "RE: Lunch"},
		{"re:Lunch", "re:Lunch"},
		{"Fwd: Lunch", "Re: Fwd: Lunch"},
	}
	for _, tt := range tests {
		if got := replySubject(tt.in); got != tt.want {
			t.Errorf("replySubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReplyRecipients(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		replyAll bool
		own      []string
		want     string
	}{
		{
			name:    "from",
			headers: []string{"From", "Alice <alice@example.com>"},
			want:    "Alice <alice@example.com>",
		},
		{
			name:    "reply-to wins",
			headers: []string{"From", "Alice <alice@example.com>", "Reply-To", "list@example.com"},
			want:    "list@example.com",
		},
		{
			name:     "reply all dedupes and drops own",
			headers:  []string{"From", "alice@example.com", "To", "Me <ME@example.com>, bob@example.com", "Cc", "Alice <alice@example.com>"},
			replyAll: true,
			own:      []string{"me@example.com"},
			want:     "alice@example.com, bob@example.com",
		},
		{
			name:     "reply all to only self falls back to sender",
			headers:  []string{"From", "me@example.com", "To", "me@example.com"},
			replyAll: true,
			own:      []string{"Me <me@example.com>"},
			want:     "me@example.com",
		},
		{
			name:     "reply all keeps undelimited names out",
			headers:  []string{"From", "alice@example.com", "To", "undisclosed-recipients:;"},
			replyAll: true,
			want:     "alice@example.com",
		},
		{
			name:     "reply all keeps quoted commas in names",
			headers:  []string{"From", `"Doe, John" <john@example.com>`, "To", `me@example.com, "Roe, Jane" <jane@example.com>`},
			replyAll: true,
			own:      []string{"me@example.com"},
			want:     `"Doe, John" <john@example.com>, "Roe, Jane" <jane@example.com>`,
		},
		{
			name:     "unparseable header falls back to splitting",
			headers:  []string{"From", "alice@example.com", "Cc", `bob@example.com; "carol <carol@example.com>`},
			replyAll: true,
			want:     `alice@example.com, bob@example.com, "carol <carol@example.com>`,
		},
		{
			name:     "account name is not an address",
			headers:  []string{"From", "alice@example.com", "To", "bob@example.com"},
			replyAll: true,
			own:      []string{"work"},
			want:     "alice@example.com, bob@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := makeMessage("", tt.headers...)
			if got := replyRecipients(msg, tt.replyAll, tt.own...); got != tt.want {
				t.Errorf("replyRecipients = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteSnippet(t *testing.T) {
	long := strings.Repeat("x", 200)
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "empty",
			body: "\n  \n",
			want: nil,
		},
		{
			name: "short",
			body: "\n\nHello\r\n\r\nBye  \n\n",
			want: []string{"", "", replySnippetTitle, "> Hello", ">", "> Bye"},
		},
		{
			name: "truncated to five lines",
			body: "1\n2\n3\n4\n5\n6\n7",
			want: []string{"", "", replySnippetTitle, "> 1", "> 2", "> 3", "> 4", "> 5", "> ..."},
		},
		{
			name: "long line",
			body: long,
			want: []string{"", "", replySnippetTitle, "> " + strings.Repeat("x", 157) + "..."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quoteSnippet(tt.body)
			want := strings.Join(tt.want, "\n")
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("quoteSnippet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildReply(t *testing.T) {
	msg := makeMessage("See you\nat noon",
		"From", "Alice <alice@example.com>",
		"Subject", "Lunch",
		"Message-ID", "<abc@example.com>",
	)

	got := buildReply(msg, false, "me@example.com")

	want := replyDraft{
		to:        "Alice <alice@example.com>",
		subject:   "Re: Lunch",
		body:      "\n\n" + replySnippetTitle + "\n> See you\n> at noon",
		inReplyTo: "<abc@example.com>",
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(replyDraft{})); diff != "" {
		t.Errorf("buildReply mismatch (-want +got):\n%s", diff)
	}
}

func TestAddressKey(t *testing.T) {
	tests := map[string]string{
		"Alice <Alice@Example.com>": "alice@example.com",
		"bob@example.com":           "bob@example.com",
		"\"Bob\" bob@example.com":   "bob@example.com",
		"work":                      "",
		"":                          "",
	}
	for in, want := range tests {
		if got := addressKey(in); got != want {
			t.Errorf("addressKey(%q) = %q, want %q", in, got, want)
		}
	}
}
