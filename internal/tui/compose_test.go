package tui

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/wesm/mailtui/internal/himalaya"
	"github.com/wesm/mailtui/internal/himalaya/himalayatest"
)

var errNoSender = &himalaya.ClientError{
	Op:         "send message",
	Kind:       himalaya.KindRejected,
	Diagnostic: "cannot send message without a sender",
}

// openCompose presses c and fills the form.
func openCompose(t *testing.T, m Model, to, subject, body string) Model {
	t.Helper()
	m = press(t, m, key('c'))
	m = typeText(t, m, to)
	m, _ = sendKey(t, m, keyTab())
	m = typeText(t, m, subject)
	m, _ = sendKey(t, m, keyTab())
	return typeText(t, m, body)
}

func TestComposeOpen(t *testing.T) {
	m := NewBuilder().WithEnvelopes(makeEnvelopes(3)...).Build()

	m = press(t, m, key('c'))

	cm := composeOf(t, m)
	if cm.focus != fieldTo {
		t.Errorf("focus = %v, want To", cm.focus)
	}
	if cm.reply != nil {
		t.Error("new email should not carry a reply source")
	}
	assertFlash(t, m, "Composing new email. Tab moves between fields; Ctrl+S/F5 sends; Esc cancels.")
	if view := stripANSI(m.View()); !strings.Contains(view, "New Email") || !strings.Contains(view, "[ Send ]") {
		t.Errorf("compose view:\n%s", view)
	}
}

func TestComposeTypingGoesToFocusedField(t *testing.T) {
	m := NewBuilder().Build()

	m = openCompose(t, m, "bob@example.com", "quick question", "hello q")

	cm := composeOf(t, m)
	if got := cm.to.Value(); got != "bob@example.com" {
		t.Errorf("To = %q", got)
	}
	if got := cm.subject.Value(); got != "quick question" {
		t.Errorf("Subject = %q", got)
	}
	if got := cm.body.Value(); got != "hello q" {
		t.Errorf("Body = %q", got)
	}
	if m.quitting {
		t.Error("q typed in a field must not quit")
	}
}

func TestComposeFocusCycle(t *testing.T) {
	m := NewBuilder().Build()
	m = press(t, m, key('c'))

	want := []composeField{fieldSubject, fieldBody, fieldSend, fieldCancel, fieldTo}
	for i, f := range want {
		m, _ = sendKey(t, m, keyTab())
		if got := composeOf(t, m).focus; got != f {
			t.Fatalf("tab %d: focus = %v, want %v", i+1, got, f)
		}
	}

	m, _ = sendKey(t, m, keyShiftTab())
	if got := composeOf(t, m).focus; got != fieldCancel {
		t.Errorf("shift+tab from To: focus = %v, want Cancel", got)
	}
	m, _ = sendKey(t, m, keyLeft())
	if got := composeOf(t, m).focus; got != fieldSend {
		t.Errorf("left on buttons: focus = %v, want Send", got)
	}
	m, _ = sendKey(t, m, keyRight())
	if got := composeOf(t, m).focus; got != fieldCancel {
		t.Errorf("right on buttons: focus = %v, want Cancel", got)
	}
}

func TestComposeEnterAdvancesHeaderFields(t *testing.T) {
	m := NewBuilder().Build()
	m = press(t, m, key('c'))

	m, _ = sendKey(t, m, keyEnter())
	m, _ = sendKey(t, m, keyEnter())
	if got := composeOf(t, m).focus; got != fieldBody {
		t.Fatalf("focus = %v, want Body", got)
	}

	m = typeText(t, m, "a")
	m, _ = sendKey(t, m, keyEnter())
	m = typeText(t, m, "b")
	if got := composeOf(t, m).body.Value(); got != "a\nb" {
		t.Errorf("Body = %q, enter should insert a newline", got)
	}
}

func TestComposeRequiresTo(t *testing.T) {
	client := himalayatest.NewMockClient()
	m := NewBuilder().WithClient(client).Build()
	m = press(t, m, key('c'))
	m, _ = sendKey(t, m, keyTab())
	m = typeText(t, m, "subject only")

	m = press(t, m, keyCtrlS())

	cm := composeOf(t, m)
	if cm.focus != fieldTo {
		t.Errorf("focus = %v, want To", cm.focus)
	}
	assertFlash(t, m, "To field is required.")
	if len(client.Sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestComposeSend(t *testing.T) {
	client := himalayatest.NewMockClient(makeEnvelopes(3)...)
	m := NewBuilder().WithClient(client).WithSender("Me <me@example.com>").Build()
	m = openCompose(t, m, "bob@example.com", "Hi", "Body text")

	m = press(t, m, keyCtrlS())

	listOf(t, m)
	assertFlash(t, m, "Email sent.")
	if len(client.Sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(client.Sent))
	}
	want := himalaya.Draft{To: "bob@example.com", Subject: "Hi", Body: "Body text", From: "Me <me@example.com>"}
	if client.Sent[0] != want {
		t.Errorf("draft = %+v, want %+v", client.Sent[0], want)
	}
	calls := client.Calls()
	if calls[len(calls)-1] != "list INBOX 0 20" {
		t.Errorf("calls = %v, want a list refresh after send", calls)
	}
}

func TestComposeSendButtonAndF5(t *testing.T) {
	for _, name := range []string{"button", "f5"} {
		t.Run(name, func(t *testing.T) {
			client := himalayatest.NewMockClient()
			client.SendReply = "Message successfully sent"
			m := NewBuilder().WithClient(client).Build()
			m = openCompose(t, m, "bob@example.com", "", "")

			if name == "button" {
				m, _ = sendKey(t, m, keyTab())
				m = press(t, m, keyEnter())
			} else {
				m = press(t, m, keyF5())
			}

			listOf(t, m)
			assertFlash(t, m, "Message successfully sent")
			if len(client.Sent) != 1 {
				t.Errorf("sent = %d, want 1", len(client.Sent))
			}
		})
	}
}

func TestComposeSendErrorKeepsDraft(t *testing.T) {
	client := himalayatest.NewMockClient()
	client.SendFunc = func(context.Context, himalaya.Draft) (string, error) { return "", errRejected }
	m := NewBuilder().WithClient(client).Build()
	m = openCompose(t, m, "bob@example.com", "Hi", "keep me")

	m = press(t, m, keyCtrlS())

	cm := composeOf(t, m)
	if cm.body.Value() != "keep me" || cm.to.Value() != "bob@example.com" {
		t.Errorf("draft lost: to=%q body=%q", cm.to.Value(), cm.body.Value())
	}
	assertFlashContains(t, m, "Send error: ")
	assertFlashContains(t, m, "connection refused")
	assertModal(t, m, modalNone)
}

func TestComposeMissingSenderPrompt(t *testing.T) {
	client := himalayatest.NewMockClient()
	var drafts []himalaya.Draft
	client.SendFunc = func(_ context.Context, d himalaya.Draft) (string, error) {
		drafts = append(drafts, d)
		if d.From == "" {
			return "", errNoSender
		}
		return "Email sent.", nil
	}
	m := NewBuilder().WithClient(client).Build()
	m = openCompose(t, m, "bob@example.com", "Hi", "x")

	m = press(t, m, keyCtrlS())
	assertModal(t, m, modalSenderPrompt)
	if view := stripANSI(m.View()); !strings.Contains(view, "Enter sender. Example: Name <email@domain>:") {
		t.Errorf("sender prompt missing:\n%s", view)
	}

	m = typeText(t, m, "Me <me@example.com>")
	m = press(t, m, keyEnter())

	assertModal(t, m, modalNone)
	listOf(t, m)
	assertFlash(t, m, "Email sent.")
	if m.sender != "Me <me@example.com>" {
		t.Errorf("sender = %q, want it kept for the session", m.sender)
	}
	if len(drafts) != 2 || drafts[1].From != "Me <me@example.com>" {
		t.Errorf("drafts = %+v", drafts)
	}
}

func TestComposeMissingSenderRetriedOnce(t *testing.T) {
	client := himalayatest.NewMockClient()
	client.SendFunc = func(context.Context, himalaya.Draft) (string, error) { return "", errNoSender }
	m := NewBuilder().WithClient(client).Build()
	m = openCompose(t, m, "bob@example.com", "Hi", "x")
	m = press(t, m, keyCtrlS())
	m = typeText(t, m, "me@example.com")

	m = press(t, m, keyEnter())

	assertModal(t, m, modalNone)
	composeOf(t, m)
	assertFlashContains(t, m, "Send error: ")
}

func TestComposeSenderPromptCancel(t *testing.T) {
	for _, name := range []string{"esc", "empty"} {
		t.Run(name, func(t *testing.T) {
			client := himalayatest.NewMockClient()
			client.SendFunc = func(context.Context, himalaya.Draft) (string, error) { return "", errNoSender }
			m := NewBuilder().WithClient(client).Build()
			m = openCompose(t, m, "bob@example.com", "Hi", "x")
			m = press(t, m, keyCtrlS())

			if name == "esc" {
				m = press(t, m, keyEsc())
			} else {
				m = press(t, m, keyEnter())
			}

			assertModal(t, m, modalNone)
			composeOf(t, m)
			assertFlash(t, m, "Send canceled: sender was not provided.")
			if got := len(client.Calls()); got != 2 {
				t.Errorf("calls = %v, want no retry", client.Calls())
			}
		})
	}
}

func TestComposeCancel(t *testing.T) {
	client := himalayatest.NewMockClient(makeEnvelopes(3)...)
	m := NewBuilder().WithClient(client).Build()
	m = press(t, m, keyDown())
	m = openCompose(t, m, "bob@example.com", "Hi", "discard me")

	m = press(t, m, keyEsc())

	if lm := listOf(t, m); lm.cursor != 1 {
		t.Errorf("cursor = %d, want 1", lm.cursor)
	}
	assertFlash(t, m, "Compose canceled.")
	if len(client.Calls()) != 1 {
		t.Errorf("calls = %v, cancel should not call the client", client.Calls())
	}
}

func TestComposeCancelButton(t *testing.T) {
	m := NewBuilder().Build()
	m = press(t, m, key('c'))
	m, _ = sendKey(t, m, keyShiftTab())

	m = press(t, m, key(' '))

	listOf(t, m)
	assertFlash(t, m, "Compose canceled.")
}

func TestComposeHelp(t *testing.T) {
	m := NewBuilder().Build()
	m = press(t, m, key('c'))

	m, _ = sendKey(t, m, keyF1())
	assertModal(t, m, modalHelp)
	m, _ = sendKey(t, m, keyEsc())

	assertModal(t, m, modalNone)
	composeOf(t, m)
}

func TestComposeFromMessageReturnsToMessage(t *testing.T) {
	client := newReadingClient()
	m := NewBuilder().WithClient(client).Build()
	m = press(t, m, keyEnter())

	m = press(t, m, key('c'))
	m = press(t, m, keyEsc())

	if mm := messageOf(t, m); mm.msg.ID != "5" {
		t.Errorf("message = %s, want 5", mm.msg.ID)
	}
}

// =============================================================================
// Reply Tests
// =============================================================================

func TestReplyCompose(t *testing.T) {
	client := newReadingClient()
	m := NewBuilder().WithClient(client).WithSender("me@example.com").Build()
	m = press(t, m, keyEnter())

	m = press(t, m, key('r'))

	cm := composeOf(t, m)
	if cm.focus != fieldBody {
		t.Errorf("focus = %v, want Body", cm.focus)
	}
	if got := cm.to.Value(); got != "Sender 5 <sender5@example.com>" {
		t.Errorf("To = %q", got)
	}
	if got := cm.subject.Value(); got != "Re: Subject 5" {
		t.Errorf("Subject = %q", got)
	}
	if cm.title() != "Reply Email" {
		t.Errorf("title = %q", cm.title())
	}
	assertFlashContains(t, m, "Composing reply.")

	m = typeText(t, m, "Thanks")
	body := composeOf(t, m).body.Value()
	if !strings.HasPrefix(body, "Thanks\n\n"+replySnippetTitle+"\n> Body of message 5") {
		t.Errorf("body = %q, typing should start above the quote", body)
	}
}

func TestReplySendMarksAnswered(t *testing.T) {
	client := newReadingClient()
	m := NewBuilder().WithClient(client).WithSender("me@example.com").Build()
	m = press(t, m, keyEnter())
	m = press(t, m, key('r'))
	m = typeText(t, m, "Thanks")

	m = press(t, m, keyCtrlS())

	lm := listOf(t, m)
	if lm.cursor != 0 || lm.rows[0].ID != "5" {
		t.Errorf("cursor = %d, want the replied row kept selected", lm.cursor)
	}
	assertFlash(t, m, "Email sent.")
	if len(client.Sent) != 1 {
		t.Fatalf("sent = %d", len(client.Sent))
	}
	d := client.Sent[0]
	if d.InReplyTo != "<msg5@example.com>" || d.ReplyToID != "5" {
		t.Errorf("threading = %q / %q", d.InReplyTo, d.ReplyToID)
	}
	if !slices.Contains(client.Calls(), "answered INBOX 5") {
		t.Errorf("calls = %v, want the source flagged answered", client.Calls())
	}
	if !lm.rows[0].Answered {
		t.Error("refreshed list should show the answered flag")
	}
}

func TestReplyMarkAnsweredFailureIsNotReported(t *testing.T) {
	client := newReadingClient()
	client.MarkAnsweredFunc = func(context.Context, string, string) error { return errRejected }
	m := NewBuilder().WithClient(client).WithSender("me@example.com").Build()
	m = press(t, m, keyEnter())
	m = press(t, m, key('r'))

	m = press(t, m, keyCtrlS())

	listOf(t, m)
	assertFlash(t, m, "Email sent.")
}

func TestReplyAllCompose(t *testing.T) {
	client := himalayatest.NewMockClient(makeEnvelopes(1)...)
	client.Messages["1"] = makeMessage("hi",
		"From", "Alice <alice@example.com>",
		"To", "me@example.com, Bob <bob@example.com>",
		"Cc", "carol@example.com; ALICE@example.com",
		"Subject", "RE: plans",
	)
	m := NewBuilder().WithClient(client).WithSender("Me <me@example.com>").Build()
	m = press(t, m, keyEnter())

	m = press(t, m, key('R'))

	cm := composeOf(t, m)
	if got, want := cm.to.Value(), "Alice <alice@example.com>, Bob <bob@example.com>, carol@example.com"; got != want {
		t.Errorf("To = %q, want %q", got, want)
	}
	if got := cm.subject.Value(); got != "RE: plans" {
		t.Errorf("Subject = %q", got)
	}
	if cm.title() != "Reply All" {
		t.Errorf("title = %q", cm.title())
	}
}
