package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/wesm/mailtui/internal/himalaya"
	"github.com/wesm/mailtui/internal/himalaya/himalayatest"
	"github.com/wesm/mailtui/internal/mime"
)

var _ MailClient = (*himalayatest.MockClient)(nil)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// =============================================================================
// Test Fixtures
// =============================================================================

// TestModelBuilder helps construct Model instances for testing
type TestModelBuilder struct {
	client         *himalayatest.MockClient
	width          int
	height         int
	pageSize       int
	folder         string
	sender         string
	markSeen       bool
	accountNames   []string
	accounts       map[string]*himalayatest.MockClient
	defaultAccount string
	senders        map[string]string
	skipLoad       bool
}

func NewBuilder() *TestModelBuilder {
	return &TestModelBuilder{
		client:   himalayatest.NewMockClient(),
		width:    100,
		height:   24,
		pageSize: 20,
		markSeen: true,
		accounts: make(map[string]*himalayatest.MockClient),
		senders:  make(map[string]string),
	}
}

// WithEnvelopes fills the INBOX of the default client.
func (b *TestModelBuilder) WithEnvelopes(envs ...himalaya.Envelope) *TestModelBuilder {
	b.client.Envelopes[himalaya.InboxName] = envs
	return b
}

func (b *TestModelBuilder) WithClient(c *himalayatest.MockClient) *TestModelBuilder {
	b.client = c
	return b
}

func (b *TestModelBuilder) WithSize(width, height int) *TestModelBuilder {
	b.width = width
	b.height = height
	return b
}

func (b *TestModelBuilder) WithPageSize(size int) *TestModelBuilder {
	b.pageSize = size
	return b
}

func (b *TestModelBuilder) WithFolder(folder string) *TestModelBuilder {
	b.folder = folder
	return b
}

func (b *TestModelBuilder) WithSender(sender string) *TestModelBuilder {
	b.sender = sender
	return b
}

func (b *TestModelBuilder) WithMarkSeen(markSeen bool) *TestModelBuilder {
	b.markSeen = markSeen
	return b
}

// WithAccount registers a switchable account. A nil client makes every
// listing for that account fail. The default account ("") connects to the
// builder's main client.
func (b *TestModelBuilder) WithAccount(name, sender string, c *himalayatest.MockClient) *TestModelBuilder {
	b.accountNames = append(b.accountNames, name)
	b.accounts[name] = c
	if sender != "" {
		b.senders[name] = sender
	}
	return b
}

func (b *TestModelBuilder) WithDefaultAccount(name string) *TestModelBuilder {
	b.defaultAccount = name
	return b
}

// WithoutInitialLoad leaves the model in its startup loading state.
func (b *TestModelBuilder) WithoutInitialLoad() *TestModelBuilder {
	b.skipLoad = true
	return b
}

func (b *TestModelBuilder) Build() Model {
	opts := Options{
		Folder:   b.folder,
		PageSize: b.pageSize,
		MarkSeen: b.markSeen,
		Sender:   b.sender,
		Version:  "test123",
	}
	if len(b.accountNames) > 0 {
		opts.Connect = func(name string) MailClient {
			if name == "" {
				return b.client
			}
			if c := b.accounts[name]; c != nil {
				return c
			}
			return failingClient(name)
		}
		opts.Accounts = func() ([]string, string) {
			return append([]string(nil), b.accountNames...), b.defaultAccount
		}
		opts.ResolveSender = func(name string) string {
			return b.senders[name]
		}
	}

	m := New(b.client, opts)
	m.width = b.width
	m.height = b.height
	if b.skipLoad {
		return m
	}

	// Apply the startup listing synchronously.
	msg := m.loadEnvelopes(m.listRequest(listFresh))()
	newM, _ := m.Update(msg)
	m = newM.(Model)
	m.flashMessage = ""
	return m
}

// failingClient is a client whose every call fails.
func failingClient(name string) *himalayatest.MockClient {
	c := himalayatest.NewMockClient()
	c.AccountName = name
	fail := &himalaya.ClientError{Op: "list envelopes", Kind: himalaya.KindRejected, Diagnostic: "cannot find account " + name}
	c.ListEnvelopesFunc = func(context.Context, string, int, int) ([]himalaya.Envelope, error) {
		return nil, fail
	}
	return c
}

// =============================================================================
// Helpers
// =============================================================================

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(k)
	return newM.(Model), cmd
}

// sendMsg sends any tea.Msg through Update and returns the concrete Model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(msg)
	return newM.(Model), cmd
}

// resultTimeout bounds how long settle waits for a client result. Timer
// commands (spinner, flash) never produce one and are abandoned.
const resultTimeout = 200 * time.Millisecond

// nextResult runs cmd, expanding batches, and returns the first client
// result message it produces.
func nextResult(cmd tea.Cmd) (tea.Msg, bool) {
	if cmd == nil {
		return nil, false
	}
	ch := make(chan tea.Msg, 32)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, sub := range batch {
				if sub != nil {
					go run(sub)
				}
			}
			return
		}
		switch msg.(type) {
		case envelopesLoadedMsg, messageLoadedMsg, foldersLoadedMsg, deleteDoneMsg, sendDoneMsg:
			ch <- msg
		}
	}
	go run(cmd)

	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(resultTimeout):
		return nil, false
	}
}

// settle feeds the client results of cmd back into the model until no
// client call is pending.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg, ok := nextResult(cmd)
		if !ok {
			return m
		}
		m, cmd = sendMsg(t, m, msg)
	}
	t.Fatal("settle: too many chained client calls")
	return m
}

// press sends k and settles the resulting client calls.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := sendKey(t, m, k)
	return settle(t, m, cmd)
}

// typeText sends each rune of s as a key press.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = sendKey(t, m, key(r))
	}
	return m
}

func key(r rune) tea.KeyMsg {
	if r == ' ' {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyEnter() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyEsc() tea.KeyMsg      { return tea.KeyMsg{Type: tea.KeyEsc} }
func keyTab() tea.KeyMsg      { return tea.KeyMsg{Type: tea.KeyTab} }
func keyShiftTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyShiftTab} }
func keyDown() tea.KeyMsg     { return tea.KeyMsg{Type: tea.KeyDown} }
func keyUp() tea.KeyMsg       { return tea.KeyMsg{Type: tea.KeyUp} }
func keyLeft() tea.KeyMsg     { return tea.KeyMsg{Type: tea.KeyLeft} }
func keyRight() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyRight} }
func keyHome() tea.KeyMsg     { return tea.KeyMsg{Type: tea.KeyHome} }
func keyEnd() tea.KeyMsg      { return tea.KeyMsg{Type: tea.KeyEnd} }
func keyCtrlC() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyCtrlC} }
func keyCtrlS() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyCtrlS} }
func keyF1() tea.KeyMsg       { return tea.KeyMsg{Type: tea.KeyF1} }
func keyF5() tea.KeyMsg       { return tea.KeyMsg{Type: tea.KeyF5} }

// makeEnvelopes returns n envelopes with IDs n..1, newest first.
func makeEnvelopes(n int) []himalaya.Envelope {
	envs := make([]himalaya.Envelope, n)
	for i := range envs {
		id := n - i
		envs[i] = himalaya.Envelope{
			ID:      fmt.Sprint(id),
			From:    fmt.Sprintf("Sender %d <sender%d@example.com>", id, id),
			Subject: fmt.Sprintf("Subject %d", id),
			Date:    time.Date(2024, 1, 1+i%28, 10, 0, 0, 0, time.UTC),
			Seen:    i%2 == 1,
		}
	}
	return envs
}

// makeMessage builds a fetched message with the given headers and body.
func makeMessage(body string, headers ...string) *himalaya.Message {
	msg := &himalaya.Message{Body: body}
	for i := 0; i+1 < len(headers); i += 2 {
		msg.Headers = append(msg.Headers, mime.Header{Key: strings.ToLower(headers[i]), Value: headers[i+1]})
	}
	return msg
}

// errRejected is a generic program failure.
var errRejected = &himalaya.ClientError{Op: "test", Kind: himalaya.KindRejected, Diagnostic: "connection refused"}

// =============================================================================
// Assertions
// =============================================================================

// assertModal checks that the model is in the expected modal state
func assertModal(t *testing.T, m Model, expected modalType) {
	t.Helper()
	if m.modal != expected {
		t.Errorf("expected modal %v, got %v", expected, m.modal)
	}
}

// assertFlash checks the flash message.
func assertFlash(t *testing.T, m Model, want string) {
	t.Helper()
	if m.flashMessage != want {
		t.Errorf("flash = %q, want %q", m.flashMessage, want)
	}
}

// assertFlashContains checks that the flash message contains want.
func assertFlashContains(t *testing.T, m Model, want string) {
	t.Helper()
	if !strings.Contains(m.flashMessage, want) {
		t.Errorf("flash = %q, want it to contain %q", m.flashMessage, want)
	}
}

// assertLoading checks the loading flag.
func assertLoading(t *testing.T, m Model, want bool) {
	t.Helper()
	if m.loading != want {
		t.Errorf("loading = %v, want %v", m.loading, want)
	}
}

// listOf returns the list mode, failing the test in any other mode.
func listOf(t *testing.T, m Model) listMode {
	t.Helper()
	lm, ok := m.mode.(listMode)
	if !ok {
		t.Fatalf("mode = %T, want listMode", m.mode)
	}
	return lm
}

// messageOf returns the message mode, failing the test in any other mode.
func messageOf(t *testing.T, m Model) messageMode {
	t.Helper()
	mm, ok := m.mode.(messageMode)
	if !ok {
		t.Fatalf("mode = %T, want messageMode", m.mode)
	}
	return mm
}

// foldersOf returns the folders mode, failing the test in any other mode.
func foldersOf(t *testing.T, m Model) foldersMode {
	t.Helper()
	fm, ok := m.mode.(foldersMode)
	if !ok {
		t.Fatalf("mode = %T, want foldersMode", m.mode)
	}
	return fm
}

// composeOf returns the compose mode, failing the test in any other mode.
func composeOf(t *testing.T, m Model) composeMode {
	t.Helper()
	cm, ok := m.mode.(composeMode)
	if !ok {
		t.Fatalf("mode = %T, want composeMode", m.mode)
	}
	return cm
}

// rowIDs returns the IDs of the list rows.
func rowIDs(lm listMode) []string {
	ids := make([]string, len(lm.rows))
	for i, r := range lm.rows {
		ids[i] = r.ID
	}
	return ids
}

// assertSession checks the committed account, folder, page and page size.
func assertSession(t *testing.T, m Model, account, folder string, page, pageSize int) {
	t.Helper()
	if m.account != account || m.folder != folder || m.page != page || m.pageSize != pageSize {
		t.Errorf("session = (%q, %q, %d, %d), want (%q, %q, %d, %d)",
			m.account, m.folder, m.page, m.pageSize, account, folder, page, pageSize)
	}
}

// countViewLines counts the number of lines in a view string.
func countViewLines(view string) int {
	lines := strings.Split(view, "\n")
	actual := len(lines)
	if actual > 0 && lines[actual-1] == "" {
		actual--
	}
	return actual
}

// assertViewFitsHeight checks that the rendered view fits within the given height.
func assertViewFitsHeight(t *testing.T, view string, height int) {
	t.Helper()
	actual := countViewLines(view)
	if actual > height {
		t.Errorf("View has %d lines but terminal height is %d", actual, height)
	}
}

// assertViewFitsWidth checks that no rendered line is wider than width.
func assertViewFitsWidth(t *testing.T, view string, width int) {
	t.Helper()
	for i, line := range strings.Split(view, "\n") {
		if w := lipgloss.Width(line); w > width {
			t.Errorf("line %d is %d cells wide, terminal width is %d: %q", i, w, width, stripANSI(line))
		}
	}
}

// resizeModel sends a WindowSizeMsg and returns the updated model.
func resizeModel(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	newModel, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return newModel.(Model)
}
