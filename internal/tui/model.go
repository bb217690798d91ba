// Package tui provides the interactive terminal mail session for mailtui.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/mailtui/internal/himalaya"
)

// MailClient is the mail API the session drives. *himalaya.Client
// satisfies it.
type MailClient interface {
	Account() string
	ListEnvelopes(ctx context.Context, folder string, page, pageSize int) ([]himalaya.Envelope, error)
	ReadMessage(ctx context.Context, folder, id string, markSeen bool) (*himalaya.Message, error)
	DeleteMessage(ctx context.Context, folder, id string) error
	Send(ctx context.Context, draft himalaya.Draft) (string, error)
	MarkAnswered(ctx context.Context, folder, id string) error
	ListFolders(ctx context.Context) ([]himalaya.Folder, error)
}

var _ MailClient = (*himalaya.Client)(nil)

// Options configuration for TUI.
type Options struct {
	Folder   string
	PageSize int
	MarkSeen bool
	Sender   string
	Version  string

	// Context bounds every client call; cancelling it stops running
	// subprocesses. Defaults to context.Background().
	Context context.Context
	Logger  *slog.Logger

	// Connect returns a client bound to account ("" is the program's
	// default account). Account switching is disabled when nil.
	Connect func(account string) MailClient
	// Accounts lists switchable account names and the default account.
	Accounts func() (names []string, defaultAccount string)
	// ResolveSender returns the From address configured for account.
	ResolveSender func(account string) string
}

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalHelp
	modalDeleteConfirm
	modalAccountSelector
	modalSenderPrompt
)

// Minimum terminal size for the session views.
const (
	minWidth  = 40
	minHeight = 10
)

// pendingDelete is the message awaiting delete confirmation.
type pendingDelete struct {
	id          string
	fromMessage bool
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	client        MailClient
	connect       func(string) MailClient
	listAccounts  func() ([]string, string)
	resolveSender func(string) string
	ctx           context.Context
	logger        *slog.Logger
	version       string

	// Session-wide state; the listing committed last was for exactly
	// (account, folder, page, pageSize).
	mode     mode
	account  string
	folder   string
	page     int
	pageSize int
	markSeen bool
	sender   string

	// Modal state
	modal          modalType
	modalCursor    int
	helpScroll     int
	accountNames   []string
	defaultAccount string
	pendingDelete  *pendingDelete
	senderInput    textinput.Model

	// Terminal dimensions
	width  int
	height int

	// Loading state. Only one client call is in flight at a time.
	loading       bool
	loadingLabel  string
	spinnerFrame  int
	spinnerActive bool
	requestID     uint64

	// Flash message (temporary notification)
	flashMessage   string
	flashExpiresAt time.Time

	quitting bool
}

// New creates a new TUI model with the given options.
func New(client MailClient, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Folder == "" {
		opts.Folder = himalaya.InboxName
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	si := textinput.New()
	si.Placeholder = "Name <email@domain>"
	si.CharLimit = 320
	si.Width = 50

	return Model{
		client:        client,
		connect:       opts.Connect,
		listAccounts:  opts.Accounts,
		resolveSender: opts.ResolveSender,
		ctx:           opts.Context,
		logger:        opts.Logger,
		version:       opts.Version,
		mode:          listMode{cursor: -1},
		account:       client.Account(),
		folder:        opts.Folder,
		pageSize:      opts.PageSize,
		markSeen:      opts.MarkSeen,
		sender:        opts.Sender,
		senderInput:   si,
		loading:       true,
		loadingLabel:  "Loading message list...",
		spinnerActive: true,
		requestID:     1,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadEnvelopes(m.listRequest(listFresh)),
		spinnerTick(),
	)
}

// Account returns the account of the last committed listing.
func (m Model) Account() string { return m.account }

// Folder returns the folder of the last committed listing.
func (m Model) Folder() string { return m.folder }

// listIntent says how a listing result is applied.
type listIntent int

const (
	listFresh  listIntent = iota // reset selection
	listKeep                     // keep selection, clamped
	listPage                     // page step; an empty or failed page is not committed
	listSwitch                   // account switch; a failure keeps the previous account
)

// listRequest is everything needed to issue and commit one listing.
type listRequest struct {
	intent   listIntent
	client   MailClient
	account  string
	folder   string
	page     int
	pageSize int
	sender   string // listSwitch: sender resolved for the new account
	status   string // shown on success instead of the page summary
}

// listRequest returns a request for the current listing.
func (m Model) listRequest(intent listIntent) listRequest {
	return listRequest{
		intent:   intent,
		client:   m.client,
		account:  m.account,
		folder:   m.folder,
		page:     m.page,
		pageSize: m.pageSize,
	}
}

// envelopesLoadedMsg is sent when a listing completes.
type envelopesLoadedMsg struct {
	req       listRequest
	rows      []himalaya.Envelope
	err       error
	requestID uint64
}

// messageLoadedMsg is sent when a message body is fetched.
type messageLoadedMsg struct {
	id        string
	msg       *himalaya.Message
	err       error
	requestID uint64
}

// foldersLoadedMsg is sent when folders are listed.
type foldersLoadedMsg struct {
	folders   []himalaya.Folder
	err       error
	requestID uint64
}

// deleteDoneMsg is sent when a delete completes.
type deleteDoneMsg struct {
	id          string
	fromMessage bool
	err         error
	requestID   uint64
}

// sendDoneMsg is sent when a send completes.
type sendDoneMsg struct {
	result    string
	err       error
	retried   bool
	requestID uint64
}

// flashClearMsg is sent when the flash message should be cleared.
type flashClearMsg struct{}

// spinnerTickMsg is sent to advance the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames defines the braille spinner animation sequence.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// flashDuration is how long flash messages are displayed.
const flashDuration = 4 * time.Second

// loadEnvelopes fetches one page of envelopes.
func (m Model) loadEnvelopes(req listRequest) tea.Cmd {
	requestID := m.requestID
	ctx := m.ctx
	return func() (msg tea.Msg) {
		// Recover from panics to prevent TUI from becoming unresponsive
		defer func() {
			if r := recover(); r != nil {
				msg = envelopesLoadedMsg{req: req, err: fmt.Errorf("list panic: %v", r), requestID: requestID}
			}
		}()

		rows, err := req.client.ListEnvelopes(ctx, req.folder, req.page, req.pageSize)
		return envelopesLoadedMsg{req: req, rows: rows, err: err, requestID: requestID}
	}
}

// loadMessage fetches the message body for id.
func (m Model) loadMessage(id string) tea.Cmd {
	requestID := m.requestID
	client, ctx, folder, markSeen := m.client, m.ctx, m.folder, m.markSeen
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = messageLoadedMsg{id: id, err: fmt.Errorf("read panic: %v", r), requestID: requestID}
			}
		}()

		body, err := client.ReadMessage(ctx, folder, id, markSeen)
		return messageLoadedMsg{id: id, msg: body, err: err, requestID: requestID}
	}
}

// loadFolders lists the account's folders.
func (m Model) loadFolders() tea.Cmd {
	requestID := m.requestID
	client, ctx := m.client, m.ctx
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = foldersLoadedMsg{err: fmt.Errorf("folders panic: %v", r), requestID: requestID}
			}
		}()

		folders, err := client.ListFolders(ctx)
		return foldersLoadedMsg{folders: folders, err: err, requestID: requestID}
	}
}

// deleteMessage deletes id from the current folder.
func (m Model) deleteMessage(d pendingDelete) tea.Cmd {
	requestID := m.requestID
	client, ctx, folder := m.client, m.ctx, m.folder
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = deleteDoneMsg{id: d.id, fromMessage: d.fromMessage, err: fmt.Errorf("delete panic: %v", r), requestID: requestID}
			}
		}()

		err := client.DeleteMessage(ctx, folder, d.id)
		return deleteDoneMsg{id: d.id, fromMessage: d.fromMessage, err: err, requestID: requestID}
	}
}

// sendDraft sends draft and, for a reply, flags the source answered.
// A failure to flag is logged, not reported.
func (m Model) sendDraft(draft himalaya.Draft, retried bool) tea.Cmd {
	requestID := m.requestID
	client, ctx, folder, logger := m.client, m.ctx, m.folder, m.logger
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = sendDoneMsg{err: fmt.Errorf("send panic: %v", r), retried: retried, requestID: requestID}
			}
		}()

		result, err := client.Send(ctx, draft)
		if err != nil {
			return sendDoneMsg{err: err, retried: retried, requestID: requestID}
		}
		if draft.ReplyToID != "" {
			if aerr := client.MarkAnswered(ctx, folder, draft.ReplyToID); aerr != nil {
				logger.Warn("cannot mark answered", "id", draft.ReplyToID, "err", aerr)
			}
		}
		return sendDoneMsg{result: result, retried: retried, requestID: requestID}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// beginLoading marks a client call in flight and invalidates older results.
// Commands built after it carry the new request id.
func (m *Model) beginLoading(label string) tea.Cmd {
	m.loading = true
	m.loadingLabel = label
	m.requestID++
	return m.startSpinner()
}

// issueListing starts a listing for req.
func (m Model) issueListing(req listRequest, label string) (tea.Model, tea.Cmd) {
	spin := m.beginLoading(label)
	m.logger.Debug("listing",
		"account", accountLabel(req.account), "folder", req.folder,
		"page", req.page, "page_size", req.pageSize, "intent", req.intent)
	return m, tea.Batch(spin, m.loadEnvelopes(req))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		if cm, ok := m.mode.(composeMode); ok {
			cm.resize(m.width, m.height)
			m.mode = cm
		}
		return m, nil

	case envelopesLoadedMsg:
		if msg.requestID != m.requestID {
			return m, nil
		}
		return m.applyEnvelopes(msg)

	case messageLoadedMsg:
		if msg.requestID != m.requestID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("open message failed", "id", msg.id, "err", msg.err)
			return m.showFlash(fmt.Sprintf("Error opening email %s: %v", msg.id, msg.err))
		}
		lm, ok := m.mode.(listMode)
		if !ok {
			return m, nil
		}
		m.mode = messageMode{msg: msg.msg, back: lm}
		return m.showFlash(fmt.Sprintf("Email %s loaded.", msg.id))

	case foldersLoadedMsg:
		if msg.requestID != m.requestID {
			return m, nil
		}
		return m.applyFolders(msg)

	case deleteDoneMsg:
		if msg.requestID != m.requestID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("delete failed", "id", msg.id, "err", msg.err)
			return m.showFlash(fmt.Sprintf("Error deleting email %s: %v", msg.id, msg.err))
		}
		if mm, ok := m.mode.(messageMode); ok && msg.fromMessage {
			m.mode = mm.back
		}
		req := m.listRequest(listKeep)
		req.status = fmt.Sprintf("Email %s deleted.", msg.id)
		return m.issueListing(req, "Refreshing list after delete...")

	case sendDoneMsg:
		if msg.requestID != m.requestID {
			return m, nil
		}
		return m.applySend(msg)

	case flashClearMsg:
		// Clear flash message if it hasn't been updated since the timer started
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		if m.loading {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	// Cursor blink and other component messages go to the focused input.
	if m.modal == modalSenderPrompt {
		var cmd tea.Cmd
		m.senderInput, cmd = m.senderInput.Update(msg)
		return m, cmd
	}
	if cm, ok := m.mode.(composeMode); ok {
		cmd := cm.updateFocused(msg)
		m.mode = cm
		return m, cmd
	}
	return m, nil
}

// applyEnvelopes commits a listing result. Nothing about the session
// changes unless the listing succeeded.
func (m Model) applyEnvelopes(msg envelopesLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	req := msg.req
	if msg.err != nil {
		m.logger.Warn("listing failed", "folder", req.folder, "page", req.page, "err", msg.err)
		if req.intent == listSwitch {
			return m.showFlash(fmt.Sprintf("Could not switch to account '%s'. Previous account restored.", accountLabel(req.account)))
		}
		return m.showFlash(fmt.Sprintf("Error loading page %d: %v", req.page+1, msg.err))
	}
	if req.intent == listPage && len(msg.rows) == 0 {
		return m.showFlash(fmt.Sprintf("No messages on page %d.", req.page+1))
	}

	m.client = req.client
	m.account = req.account
	m.folder = req.folder
	m.page = req.page
	m.pageSize = req.pageSize

	status := req.status
	switch req.intent {
	case listKeep:
		m.mode = withRows(m.mode, msg.rows)
	case listSwitch:
		note := "unchanged"
		if req.sender != "" {
			m.sender = req.sender
			note = "auto-updated"
		}
		m.mode = newListMode(msg.rows)
		status = fmt.Sprintf("Account changed to %s. Folder reset to %s. Sender %s.",
			accountLabel(req.account), req.folder, note)
	default:
		m.mode = newListMode(msg.rows)
	}

	if status == "" {
		if len(msg.rows) == 0 {
			status = fmt.Sprintf("No messages on page %d.", m.page+1)
		} else {
			status = fmt.Sprintf("Page %d loaded (%d messages, page-size=%d).", m.page+1, len(msg.rows), m.pageSize)
		}
	}
	return m.showFlash(status)
}

// applyFolders opens or refreshes the folder picker.
func (m Model) applyFolders(msg foldersLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.logger.Warn("list folders failed", "err", msg.err)
		return m.showFlash(fmt.Sprintf("Error listing folders: %v", msg.err))
	}
	if len(msg.folders) == 0 {
		return m.showFlash("No folders found.")
	}

	var back listMode
	switch md := m.mode.(type) {
	case listMode:
		back = md
	case messageMode:
		back = md.back
	case foldersMode:
		back = md.back
	default:
		return m, nil
	}

	fm := foldersMode{folders: msg.folders, back: back}
	for i, f := range msg.folders {
		if equalFold(f.Name, m.folder) {
			fm.cursor = i
			break
		}
	}
	m.mode = fm
	return m.showFlash(fmt.Sprintf("%d folders loaded. Press Enter to select.", len(msg.folders)))
}

// showFlash displays a temporary flash message.
func (m Model) showFlash(message string) (tea.Model, tea.Cmd) {
	m.flashMessage = message
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.width < minWidth || m.height < minHeight {
		return m.tooSmallView()
	}

	var view string
	switch md := m.mode.(type) {
	case listMode:
		view = m.listView(md)
	case messageMode:
		view = m.messageView(md)
	case foldersMode:
		view = m.foldersView(md)
	case composeMode:
		view = m.composeView(md)
	}
	if m.modal != modalNone {
		return m.overlayModal(view)
	}
	return view
}
