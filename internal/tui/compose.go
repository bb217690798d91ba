package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/mailtui/internal/himalaya"
)

// composeField is the focused element of the compose page.
type composeField int

const (
	fieldTo composeField = iota
	fieldSubject
	fieldBody
	fieldSend
	fieldCancel
	composeFieldCount
)

// replySource is the message a draft answers.
type replySource struct {
	id        string
	inReplyTo string
	all       bool
}

// composeMode edits a draft. Only the focused field receives input.
type composeMode struct {
	to      textinput.Model
	subject textinput.Model
	body    textarea.Model
	focus   composeField
	reply   *replySource
	back    mode
}

// composeChrome is the number of rows the compose page uses outside the
// body editor: title, To, Subject, separator, buttons, info line, footer.
const composeChrome = 8

func newComposeMode(back mode, width, height int) composeMode {
	to := textinput.New()
	to.Placeholder = "recipient@example.com"
	to.Prompt = ""
	to.CharLimit = 0

	subject := textinput.New()
	subject.Placeholder = "Subject"
	subject.Prompt = ""
	subject.CharLimit = 0

	body := textarea.New()
	body.Placeholder = "Write your message..."
	body.ShowLineNumbers = false
	body.Prompt = ""
	body.CharLimit = 0
	body.MaxHeight = 0

	cm := composeMode{to: to, subject: subject, body: body, back: back}
	cm.resize(width, height)
	cm.setFocus(fieldTo)
	return cm
}

// newReplyCompose opens a reply draft with focus on the body, the cursor
// above the quoted snippet.
func newReplyCompose(back messageMode, draft replyDraft, src replySource, width, height int) composeMode {
	cm := newComposeMode(back, width, height)
	cm.to.SetValue(draft.to)
	cm.subject.SetValue(draft.subject)
	cm.body.SetValue(draft.body)
	for cm.body.Line() > 0 {
		cm.body.CursorUp()
	}
	cm.body.CursorStart()
	cm.reply = &src
	cm.setFocus(fieldBody)
	return cm
}

func (c *composeMode) resize(width, height int) {
	labelWidth := len("Subject: ")
	inputWidth := max(width-labelWidth-2, 10)
	c.to.Width = inputWidth
	c.subject.Width = inputWidth
	c.body.SetWidth(max(width, 10))
	c.body.SetHeight(max(height-composeChrome, 1))
}

// setFocus moves input focus to f.
func (c *composeMode) setFocus(f composeField) {
	c.focus = f
	c.to.Blur()
	c.subject.Blur()
	c.body.Blur()
	switch f {
	case fieldTo:
		c.to.Focus()
	case fieldSubject:
		c.subject.Focus()
	case fieldBody:
		c.body.Focus()
	}
}

func (c *composeMode) focusNext() {
	c.setFocus((c.focus + 1) % composeFieldCount)
}

func (c *composeMode) focusPrev() {
	c.setFocus((c.focus + composeFieldCount - 1) % composeFieldCount)
}

// updateFocused routes msg to the focused input.
func (c *composeMode) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch c.focus {
	case fieldTo:
		c.to, cmd = c.to.Update(msg)
	case fieldSubject:
		c.subject, cmd = c.subject.Update(msg)
	case fieldBody:
		c.body, cmd = c.body.Update(msg)
	}
	return cmd
}

func (c composeMode) title() string {
	switch {
	case c.reply == nil:
		return "New Email"
	case c.reply.all:
		return "Reply All"
	default:
		return "Reply Email"
	}
}

// draft builds the message to send from the fields.
func (c composeMode) draft(sender string) himalaya.Draft {
	d := himalaya.Draft{
		To:      strings.TrimSpace(c.to.Value()),
		Subject: strings.TrimSpace(c.subject.Value()),
		Body:    c.body.Value(),
		From:    sender,
	}
	if c.reply != nil {
		d.InReplyTo = c.reply.inReplyTo
		d.ReplyToID = c.reply.id
	}
	return d
}

// handleComposeKeys handles keys on the compose page.
func (m Model) handleComposeKeys(cm composeMode, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f1":
		m.modal = modalHelp
		m.helpScroll = 0
		return m, nil
	case "ctrl+s", "f5":
		return m.submitCompose(cm)
	case "esc":
		return m.cancelCompose(cm)
	case "tab":
		cm.focusNext()
		m.mode = cm
		return m, textinput.Blink
	case "shift+tab":
		cm.focusPrev()
		m.mode = cm
		return m, textinput.Blink
	}

	switch cm.focus {
	case fieldSend, fieldCancel:
		switch msg.String() {
		case "left", "h":
			cm.setFocus(fieldSend)
		case "right", "l":
			cm.setFocus(fieldCancel)
		case "enter", " ":
			if cm.focus == fieldSend {
				return m.submitCompose(cm)
			}
			return m.cancelCompose(cm)
		}
		m.mode = cm
		return m, nil

	case fieldTo, fieldSubject:
		if msg.Type == tea.KeyEnter {
			cm.focusNext()
			m.mode = cm
			return m, textinput.Blink
		}
	}

	cmd := cm.updateFocused(msg)
	m.mode = cm
	return m, cmd
}

// submitCompose validates and sends the draft.
func (m Model) submitCompose(cm composeMode) (tea.Model, tea.Cmd) {
	draft := cm.draft(m.sender)
	if draft.To == "" {
		cm.setFocus(fieldTo)
		m.mode = cm
		m.logger.Debug("send blocked: empty To")
		return m.showFlash("To field is required.")
	}
	m.mode = cm
	spin := m.beginLoading("Sending email...")
	return m, tea.Batch(spin, m.sendDraft(draft, false))
}

// cancelCompose discards the draft.
func (m Model) cancelCompose(cm composeMode) (tea.Model, tea.Cmd) {
	m.mode = cm.back
	m.logger.Debug("compose canceled")
	return m.showFlash("Compose canceled.")
}

// applySend handles a send result. A missing sender opens the sender
// prompt once; other failures keep the draft intact.
func (m Model) applySend(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	cm, ok := m.mode.(composeMode)
	if !ok {
		return m, nil
	}

	if msg.err != nil {
		if !msg.retried && himalaya.IsMissingSender(msg.err) {
			m.logger.Warn("send failed without sender; prompting")
			m.modal = modalSenderPrompt
			m.senderInput.SetValue("")
			m.senderInput.Focus()
			return m, textinput.Blink
		}
		m.logger.Warn("send failed", "err", msg.err)
		return m.showFlash("Send error: " + msg.err.Error())
	}

	result := strings.TrimSpace(msg.result)
	if result == "" {
		result = "Email sent."
	}
	m.logger.Debug("message sent", "status", result)
	// A sent reply lands on the list the message was opened from.
	switch back := cm.back.(type) {
	case messageMode:
		m.mode = back.back
	default:
		m.mode = back
	}
	if _, ok := m.mode.(listMode); ok {
		req := m.listRequest(listKeep)
		req.status = result
		return m.issueListing(req, "Refreshing list after send...")
	}
	return m.showFlash(result)
}

// handleSenderPromptKeys edits the sender prompt. A submitted sender is kept
// for the session and the send is retried once.
func (m Model) handleSenderPromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.senderInput.Blur()
		return m.showFlash("Send canceled: sender was not provided.")
	case "enter":
		m.modal = modalNone
		m.senderInput.Blur()
		sender := strings.TrimSpace(m.senderInput.Value())
		if sender == "" {
			return m.showFlash("Send canceled: sender was not provided.")
		}
		cm, ok := m.mode.(composeMode)
		if !ok {
			return m, nil
		}
		m.sender = sender
		spin := m.beginLoading("Retrying send with sender...")
		return m, tea.Batch(spin, m.sendDraft(cm.draft(sender), true))
	}
	var cmd tea.Cmd
	m.senderInput, cmd = m.senderInput.Update(msg)
	return m, cmd
}
