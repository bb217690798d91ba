package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/mailtui/internal/himalaya"
)

// handleKeyPress processes keyboard input. While a client call is in flight
// only ctrl+c is honored.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.loading {
		return m, nil
	}
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}

	if cm, ok := m.mode.(composeMode); ok {
		return m.handleComposeKeys(cm, msg)
	}
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	switch md := m.mode.(type) {
	case listMode:
		return m.handleListKeys(md, msg)
	case messageMode:
		return m.handleMessageKeys(md, msg)
	case foldersMode:
		return m.handleFoldersKeys(md, msg)
	}
	return m, nil
}

// handleGlobalKeys handles keys common to the list, message and folder views.
// Returns (model, cmd, true) if the key was handled, or (model, nil, false) otherwise.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q", "Q":
		m.quitting = true
		return m, tea.Quit, true
	case "?":
		m.modal = modalHelp
		m.helpScroll = 0
		return m, nil, true
	case "f", "F":
		spin := m.beginLoading("Loading folders...")
		return m, tea.Batch(spin, m.loadFolders()), true
	case "a", "A":
		m2, cmd := m.openAccountSelector()
		return m2, cmd, true
	case "c", "C":
		cm := newComposeMode(m.mode, m.width, m.height)
		m.mode = cm
		m.logger.Debug("compose opened", "kind", "new")
		m2, cmd := m.showFlash("Composing new email. Tab moves between fields; Ctrl+S/F5 sends; Esc cancels.")
		return m2.(Model), tea.Batch(cmd, textinput.Blink), true
	}
	return m, nil, false
}

// handleListKeys handles keys in the envelope list.
func (m Model) handleListKeys(lm listMode, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if navigateList(key, &lm.cursor, &lm.scroll, len(lm.rows), m.listVisibleRows()) {
		m.mode = lm
		return m, nil
	}

	switch key {
	case "enter":
		env, ok := lm.selected()
		if !ok {
			return m.showFlash("No message available to open.")
		}
		spin := m.beginLoading(fmt.Sprintf("Loading email %s...", env.ID))
		return m, tea.Batch(spin, m.loadMessage(env.ID))

	case "n", "N", "right":
		req := m.listRequest(listPage)
		req.page++
		return m.issueListing(req, fmt.Sprintf("Loading page %d...", req.page+1))

	case "p", "P", "left":
		if m.page == 0 {
			return m.showFlash("Already on the first page.")
		}
		req := m.listRequest(listPage)
		req.page--
		return m.issueListing(req, fmt.Sprintf("Loading page %d...", req.page+1))

	case "r", "R":
		return m.issueListing(m.listRequest(listKeep), "Refreshing...")

	case "+", "=":
		req := m.listRequest(listFresh)
		req.pageSize += 10
		return m.issueListing(req, "Reloading with larger page size...")

	case "-", "_":
		if m.pageSize <= 1 {
			return m.showFlash("Page size is already at minimum.")
		}
		req := m.listRequest(listFresh)
		req.pageSize = max(1, req.pageSize-10)
		return m.issueListing(req, "Reloading with smaller page size...")

	case "d", "D":
		env, ok := lm.selected()
		if !ok {
			return m.showFlash("No message available to delete.")
		}
		m.pendingDelete = &pendingDelete{id: env.ID}
		m.modal = modalDeleteConfirm
		return m, nil
	}
	return m, nil
}

// handleMessageKeys handles keys while reading a message.
func (m Model) handleMessageKeys(mm messageMode, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if scrollText(key, &mm.scroll, len(m.messageLines(mm.msg)), m.messageVisibleRows()) {
		m.mode = mm
		return m, nil
	}

	switch key {
	case "esc", "b", "B":
		m.mode = mm.back
		req := m.listRequest(listKeep)
		req.status = "Back to message list."
		return m.issueListing(req, "Refreshing list...")

	case "r", "R":
		replyAll := key == "R"
		draft := buildReply(mm.msg, replyAll, m.sender, m.account)
		src := replySource{id: mm.msg.ID, inReplyTo: draft.inReplyTo, all: replyAll}
		m.mode = newReplyCompose(mm, draft, src, m.width, m.height)
		m.logger.Debug("compose opened", "kind", "reply", "source_id", mm.msg.ID, "reply_all", replyAll)
		m2, cmd := m.showFlash("Composing reply. Start typing at the top of the body; Tab moves between fields; Ctrl+S/F5 sends; Esc cancels.")
		return m2, tea.Batch(cmd, textinput.Blink)

	case "d", "D":
		m.pendingDelete = &pendingDelete{id: mm.msg.ID, fromMessage: true}
		m.modal = modalDeleteConfirm
		return m, nil
	}
	return m, nil
}

// handleFoldersKeys handles keys in the folder picker.
func (m Model) handleFoldersKeys(fm foldersMode, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if navigateList(key, &fm.cursor, &fm.scroll, len(fm.folders), m.listVisibleRows()) {
		m.mode = fm
		return m, nil
	}

	switch key {
	case "enter":
		if fm.cursor < 0 || fm.cursor >= len(fm.folders) {
			return m.showFlash("No folder available for selection.")
		}
		name := fm.folders[fm.cursor].Name
		req := m.listRequest(listFresh)
		req.folder = name
		req.page = 0
		m.logger.Debug("folder selected", "from", m.folder, "to", name)
		return m.issueListing(req, fmt.Sprintf("Loading folder %s...", name))

	case "esc", "b", "B":
		m.mode = fm.back
		return m.showFlash("Folder selection canceled.")

	case "r", "R":
		spin := m.beginLoading("Loading folders...")
		return m, tea.Batch(spin, m.loadFolders())
	}
	return m, nil
}

// handleModalKeys handles keys when a modal is displayed.
func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalHelp:
		return m.handleHelpKeys(msg)
	case modalDeleteConfirm:
		return m.handleDeleteConfirmKeys(msg)
	case modalAccountSelector:
		return m.handleAccountSelectorKeys(msg)
	case modalSenderPrompt:
		return m.handleSenderPromptKeys(msg)
	}
	return m, nil
}

func (m Model) handleDeleteConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		d := m.pendingDelete
		m.modal = modalNone
		m.pendingDelete = nil
		if d == nil {
			return m, nil
		}
		spin := m.beginLoading(fmt.Sprintf("Deleting email %s...", d.id))
		return m, tea.Batch(spin, m.deleteMessage(*d))
	case "n", "N", "esc":
		m.modal = modalNone
		m.pendingDelete = nil
		return m.showFlash("Delete canceled.")
	}
	return m, nil
}

// openAccountSelector lists configured accounts for switching.
func (m Model) openAccountSelector() (Model, tea.Cmd) {
	if m.connect == nil || m.listAccounts == nil {
		m2, cmd := m.showFlash("Account switching is not available.")
		return m2.(Model), cmd
	}
	names, def := m.listAccounts()
	if len(names) == 0 {
		m2, cmd := m.showFlash("No accounts found in Himalaya config.")
		return m2.(Model), cmd
	}
	m.accountNames = names
	m.defaultAccount = def
	m.modal = modalAccountSelector
	m.modalCursor = 0
	for i, name := range names {
		if m.account != "" && equalFold(name, m.account) {
			m.modalCursor = i + 1
		}
	}
	return m, nil
}

func (m Model) handleAccountSelectorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxIdx := len(m.accountNames) // 0 = default account, then names
	switch key := msg.String(); key {
	case "up", "k":
		if m.modalCursor > 0 {
			m.modalCursor--
		}
	case "down", "j":
		if m.modalCursor < maxIdx {
			m.modalCursor++
		}
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if n := int(key[0] - '0'); n <= maxIdx {
			m.modalCursor = n
		}
	case "enter":
		target := ""
		if m.modalCursor > 0 && m.modalCursor <= maxIdx {
			target = m.accountNames[m.modalCursor-1]
		}
		m.modal = modalNone
		return m.switchAccount(target)
	case "esc":
		m.modal = modalNone
		return m.showFlash("Account switch canceled.")
	}
	return m, nil
}

// switchAccount lists INBOX of target. The session moves to the account
// only when that listing succeeds.
func (m Model) switchAccount(target string) (tea.Model, tea.Cmd) {
	req := listRequest{
		intent:   listSwitch,
		client:   m.connect(target),
		account:  target,
		folder:   himalaya.InboxName,
		page:     0,
		pageSize: m.pageSize,
	}
	if m.resolveSender != nil {
		req.sender = m.resolveSender(target)
	}
	m.logger.Debug("account switch requested", "from", accountLabel(m.account), "to", accountLabel(target))
	return m.issueListing(req, fmt.Sprintf("Switching account to %s...", accountLabel(target)))
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down", "j":
		m.helpScroll++
	case "up", "k":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	case "pgdown":
		m.helpScroll += 10
	case "pgup":
		m.helpScroll = max(m.helpScroll-10, 0)
	default:
		// Any other key closes help
		m.modal = modalNone
		m.helpScroll = 0
		return m, nil
	}
	// Clamp scroll to prevent overscroll
	if maxScroll := len(rawHelpLines) - m.helpMaxVisible(); maxScroll > 0 {
		m.helpScroll = min(m.helpScroll, maxScroll)
	} else {
		m.helpScroll = 0
	}
	return m, nil
}
