package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wesm/mailtui/internal/himalaya"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// Unread rows: bold
	unreadRowStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	headerLabelStyle = lipgloss.NewStyle().
				Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1)

	focusedButtonStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Reverse(true).
				Bold(true)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}). // Amber for visibility
			Background(bgBase)
)

// listVisibleRows is the number of table rows that fit between the header
// (title, column header, separator) and the info and footer lines.
func (m Model) listVisibleRows() int {
	return max(m.height-5, 1)
}

// messageVisibleRows is the number of message lines that fit between the
// title bar and the info and footer lines.
func (m Model) messageVisibleRows() int {
	return max(m.height-3, 1)
}

// buildTitleBar renders line 1: "mailtui [version] - <context>".
func (m Model) buildTitleBar(context string) string {
	title := "mailtui"
	if m.version != "" && m.version != "dev" {
		title = fmt.Sprintf("mailtui [%s]", m.version)
	}
	return titleBarStyle.Render(padRight(title+" - "+context, m.width-2))
}

func (m Model) listContext() string {
	return fmt.Sprintf("account: %s | folder: %s | page: %d | page-size: %d",
		accountLabel(m.account), m.folder, m.page+1, m.pageSize)
}

// listView renders the envelope table.
func (m Model) listView(lm listMode) string {
	var sb strings.Builder
	sb.WriteString(m.buildTitleBar(m.listContext()))
	sb.WriteString("\n")

	idWidth := 4
	for _, env := range lm.rows {
		idWidth = max(idWidth, len(env.ID))
	}
	flagsWidth := 4
	dateWidth := 16
	fromWidth := min(28, max((m.width-3)/4, 10))
	subjectWidth := max(m.width-3-idWidth-flagsWidth-fromWidth-dateWidth-8, 10)

	headerRow := fmt.Sprintf("   %-*s  %-*s  %-*s  %-*s  %s",
		idWidth, "ID",
		flagsWidth, "FLAG",
		fromWidth, "From",
		subjectWidth, "Subject",
		"Date",
	)
	sb.WriteString(tableHeaderStyle.Render(padRight(headerRow, m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")

	visible := m.listVisibleRows()
	scroll := calculateScrollOffset(max(lm.cursor, 0), lm.scroll, visible)
	end := min(scroll+visible, len(lm.rows))

	if len(lm.rows) == 0 {
		sb.WriteString(emptyStyle.Render(padRight("   No messages found on this page.", m.width)))
		sb.WriteString("\n")
		end = scroll + 1
	}

	for i := scroll; i < end && i < len(lm.rows); i++ {
		env := lm.rows[i]
		line := fmt.Sprintf("%-*s  %s  %s  %s  %s",
			idWidth, env.ID,
			flagColumn(env),
			padRight(truncateRunes(env.From, fromWidth), fromWidth),
			padRight(truncateRunes(env.Subject, subjectWidth), subjectWidth),
			formatEnvelopeDate(env),
		)

		indicator := "   "
		var style lipgloss.Style
		switch {
		case i == lm.cursor:
			indicator = "▶  "
			style = cursorRowStyle
		case !env.Seen:
			style = unreadRowStyle
		case i%2 == 0:
			style = normalRowStyle
		default:
			style = altRowStyle
		}
		sb.WriteString(style.Render(indicator + padRight(line, m.width-3)))
		sb.WriteString("\n")
	}

	for i := end - scroll; i < visible; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderNotificationLine())
	sb.WriteString("\n")
	sb.WriteString(m.footerView("↑/k ↓/j", "Enter open", "d del", "n/p page", "+/- size", "r refresh", "f folders", "a acct", "c new", "? help", "q quit"))
	return sb.String()
}

// messageLines lays out the open message: headers, a blank line, then the
// body wrapped to the terminal width.
func (m Model) messageLines(msg *himalaya.Message) []string {
	if msg == nil {
		return nil
	}
	var lines []string
	addHeader := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, headerLabelStyle.Render(label+":")+" "+value)
		}
	}
	addHeader("From", msg.From())
	addHeader("To", msg.To())
	addHeader("Cc", msg.Cc())
	addHeader("Subject", msg.Subject())
	addHeader("Date", formatMessageDate(msg))
	if len(msg.Attachments) > 0 {
		addHeader("Attachments", strings.Join(msg.Attachments, ", "))
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	return append(lines, wrapText(msg.Body, m.width-2)...)
}

// messageView renders the open message.
func (m Model) messageView(mm messageMode) string {
	var sb strings.Builder
	sb.WriteString(m.buildTitleBar(fmt.Sprintf("Email %s (%s)", mm.msg.ID, m.folder)))
	sb.WriteString("\n")

	lines := m.messageLines(mm.msg)
	visible := m.messageVisibleRows()
	scroll := min(mm.scroll, max(len(lines)-visible, 0))
	end := min(scroll+visible, len(lines))
	for i := scroll; i < end; i++ {
		sb.WriteString(normalRowStyle.Render(" " + padRight(lines[i], m.width-1)))
		sb.WriteString("\n")
	}
	for i := end - scroll; i < visible; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderNotificationLine())
	sb.WriteString("\n")
	sb.WriteString(m.footerView("↑/↓ scroll", "r reply", "R all", "d del", "b back", "f folders", "c new", "? help", "q quit"))
	return sb.String()
}

// foldersView renders the folder picker.
func (m Model) foldersView(fm foldersMode) string {
	var sb strings.Builder
	sb.WriteString(m.buildTitleBar(fmt.Sprintf("Folders | account: %s | current: %s", accountLabel(m.account), m.folder)))
	sb.WriteString("\n")
	sb.WriteString(tableHeaderStyle.Render(padRight("   Folder", m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")

	visible := m.listVisibleRows()
	scroll := calculateScrollOffset(fm.cursor, fm.scroll, visible)
	end := min(scroll+visible, len(fm.folders))
	for i := scroll; i < end; i++ {
		f := fm.folders[i]
		marker := " "
		if equalFold(f.Name, m.folder) {
			marker = "*"
		}
		line := marker + " " + f.Name
		if f.Desc != "" {
			line += "  -  " + f.Desc
		}
		if f.Unread != nil && *f.Unread > 0 {
			line += fmt.Sprintf("  (%d unread)", *f.Unread)
		}

		indicator := "   "
		style := normalRowStyle
		if i == fm.cursor {
			indicator = "▶  "
			style = cursorRowStyle
		}
		sb.WriteString(style.Render(indicator + padRight(truncateRunes(line, m.width-3), m.width-3)))
		sb.WriteString("\n")
	}
	for i := end - scroll; i < visible; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderNotificationLine())
	sb.WriteString("\n")
	sb.WriteString(m.footerView("↑/k ↓/j", "Enter select", "r refresh", "b/Esc back", "a acct", "? help", "q quit"))
	return sb.String()
}

// composeView renders the compose page.
func (m Model) composeView(cm composeMode) string {
	var sb strings.Builder
	sb.WriteString(m.buildTitleBar(cm.title()))
	sb.WriteString("\n")

	field := func(label string, view string, focused bool) string {
		l := fmt.Sprintf("%-9s", label)
		if focused {
			l = headerLabelStyle.Render(l)
		}
		return padRight(" "+l+view, m.width)
	}
	sb.WriteString(field("To:", cm.to.View(), cm.focus == fieldTo))
	sb.WriteString("\n")
	sb.WriteString(field("Subject:", cm.subject.View(), cm.focus == fieldSubject))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")

	bodyLines := strings.Split(cm.body.View(), "\n")
	bodyHeight := max(m.height-composeChrome, 1)
	for i := 0; i < bodyHeight; i++ {
		line := ""
		if i < len(bodyLines) {
			line = bodyLines[i]
		}
		sb.WriteString(padRight(line, m.width))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat(" ", m.width))
	sb.WriteString("\n")

	send, cancel := buttonStyle, buttonStyle
	if cm.focus == fieldSend {
		send = focusedButtonStyle
	}
	if cm.focus == fieldCancel {
		cancel = focusedButtonStyle
	}
	sb.WriteString(padRight(" "+send.Render("[ Send ]")+"  "+cancel.Render("[ Cancel ]"), m.width))
	sb.WriteString("\n")

	sb.WriteString(m.renderNotificationLine())
	sb.WriteString("\n")
	sb.WriteString(m.footerView("Tab/S-Tab move", "Ctrl+S/F5 send", "Esc cancel", "F1 help"))
	return sb.String()
}

// tooSmallView is shown instead of the session when the terminal is below
// the minimum size.
func (m Model) tooSmallView() string {
	lines := []string{
		"Terminal too small",
		fmt.Sprintf("%dx%d, need at least %dx%d.", m.width, m.height, minWidth, minHeight),
	}
	for i := range lines {
		lines[i] = truncateRunes(lines[i], m.width)
	}
	return strings.Join(lines, "\n")
}

// footerView renders the footer with keybindings.
func (m Model) footerView(keys ...string) string {
	return footerStyle.Render(padRight(strings.Join(keys, " │ "), m.width-2))
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info line with an optional right-aligned loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle has Padding(0, 1) which adds 2 characters, so content should be m.width-2
	contentWidth := max(m.width-2, 1)

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := max(contentWidth-lipgloss.Width(content)-lipgloss.Width(indicator), 1)
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// renderNotificationLine shows the loading label with a spinner, the flash
// message, or a blank line.
func (m Model) renderNotificationLine() string {
	if m.loading {
		return m.renderInfoLine(m.loadingLabel, true)
	}
	if m.flashMessage != "" {
		return flashStyle.Render(padRight(" "+m.flashMessage, m.width))
	}
	return m.renderInfoLine("", false)
}

// rawHelpLines contains the help modal content. The first line is the title.
var rawHelpLines = []string{
	"Keyboard Shortcuts",
	"",
	"Global",
	"  ?           Open/close help",
	"  a           Switch account",
	"  c           New email",
	"  f           Folders",
	"  q           Quit",
	"",
	"Message list",
	"  ↑/k, ↓/j    Move selection",
	"  Home/End    First/last message",
	"  Enter       Open email",
	"  d           Delete selected email",
	"  n/→, p/←    Next/previous page",
	"  +/-         Increase/decrease page size",
	"  r           Refresh page",
	"",
	"Folders",
	"  ↑/k, ↓/j    Move selection",
	"  Enter       Select folder",
	"  r           Refresh folders",
	"  b/Esc       Back without changing folder",
	"",
	"Reading",
	"  ↑/k, ↓/j    Scroll",
	"  PgUp/PgDn   Page up/down",
	"  r           Reply",
	"  R           Reply all",
	"  d           Delete open email",
	"  b/Esc       Back to list",
	"",
	"Compose",
	"  Tab/S-Tab   Move across To, Subject, Body, buttons",
	"  Enter       New line in Body",
	"  Ctrl+S/F5   Send",
	"  Esc         Cancel",
	"  F1          Help",
	"",
	"[↑/↓] Scroll  [Any other key] Close",
}

// helpMaxVisible returns the max visible lines for the help modal given terminal height.
func (m Model) helpMaxVisible() int {
	return min(max(m.height-6, 1), len(rawHelpLines))
}

// renderHelpModal renders the help modal content with scrolling support.
func (m Model) renderHelpModal() string {
	maxVisible := m.helpMaxVisible()
	scroll := min(m.helpScroll, max(len(rawHelpLines)-maxVisible, 0))

	visible := rawHelpLines[scroll : scroll+maxVisible]
	rendered := make([]string, len(visible))
	for i, line := range visible {
		if scroll+i == 0 {
			rendered[i] = modalTitleStyle.Render(line)
		} else {
			rendered[i] = line
		}
	}
	return strings.Join(rendered, "\n")
}

// renderDeleteConfirmModal renders the deletion confirmation modal content.
func (m Model) renderDeleteConfirmModal() string {
	if m.pendingDelete == nil {
		return ""
	}
	return modalTitleStyle.Render("Delete Email") + "\n\n" +
		fmt.Sprintf("Delete email %s from folder %s?\n\n", m.pendingDelete.id, m.folder) +
		"[Y] Yes, delete    [N] Cancel"
}

// renderAccountSelectorModal renders the account selector modal content.
func (m Model) renderAccountSelectorModal() string {
	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("Switch Account"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Current: %s\n\n", accountLabel(m.account)))

	maxItems := max(m.height-14, 1)
	start := 0
	if m.modalCursor > maxItems {
		start = m.modalCursor - maxItems
	}

	defaultLabel := "(default)"
	if m.defaultAccount != "" {
		defaultLabel += " -> " + m.defaultAccount
	}
	labels := append([]string{defaultLabel}, m.accountNames...)
	for i := start; i < len(labels) && i <= start+maxItems; i++ {
		indicator := "○"
		if m.modalCursor == i {
			indicator = "●"
		}
		label := labels[i]
		if i > 0 {
			var tags []string
			if m.defaultAccount != "" && equalFold(label, m.defaultAccount) {
				tags = append(tags, "default")
			}
			if m.account != "" && equalFold(label, m.account) {
				tags = append(tags, "current")
			}
			if len(tags) > 0 {
				label += " (" + strings.Join(tags, ", ") + ")"
			}
		}
		sb.WriteString(fmt.Sprintf(" %s %d) %s\n", indicator, i, label))
	}
	sb.WriteString("\n[↑/↓/0-9] Navigate  [Enter] Select  [Esc] Cancel")
	return sb.String()
}

// renderSenderPromptModal renders the sender prompt shown when the mail
// program could not determine a From address.
func (m Model) renderSenderPromptModal() string {
	return modalTitleStyle.Render("Sender (From)") + "\n\n" +
		"Enter sender. Example: Name <email@domain>:\n\n" +
		m.senderInput.View() + "\n\n" +
		"[Enter] Send  [Esc] Cancel"
}

// overlayModal renders a modal dialog over the content.
func (m Model) overlayModal(background string) string {
	var modalContent string
	switch m.modal {
	case modalHelp:
		modalContent = m.renderHelpModal()
	case modalDeleteConfirm:
		modalContent = m.renderDeleteConfirmModal()
	case modalAccountSelector:
		modalContent = m.renderAccountSelectorModal()
	case modalSenderPrompt:
		modalContent = m.renderSenderPromptModal()
	}
	if modalContent == "" {
		return background
	}

	modal := modalStyle.Render(modalContent)
	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := max((len(bgLines)-len(modalLines))/2, 0)
	modalWidth := lipgloss.Width(modal)
	leftPadding := max((m.width-modalWidth)/2, 0)

	// Overlay modal onto background, preserving background where modal doesn't cover
	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]
		bgWidth := lipgloss.Width(bgLine)

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)
		if rightStart := leftPadding + modalWidth; rightStart < bgWidth {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}
	return strings.Join(bgLines, "\n")
}
