package himalayatest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wesm/mailtui/internal/himalaya"
)

// MockClient is an in-memory mailbox with the himalaya.Client method set.
// Each method delegates to an optional function field; when the field is
// nil the mailbox data is used. Every call is recorded in Calls.
type MockClient struct {
	AccountName string

	// Envelopes holds each folder's full listing; pages are sliced from it.
	Envelopes map[string][]himalaya.Envelope
	Messages  map[string]*himalaya.Message
	Folders   []himalaya.Folder
	SendReply string
	Sent      []himalaya.Draft

	// Optional overrides.
	ListEnvelopesFunc func(ctx context.Context, folder string, page, pageSize int) ([]himalaya.Envelope, error)
	ReadMessageFunc   func(ctx context.Context, folder, id string, markSeen bool) (*himalaya.Message, error)
	DeleteMessageFunc func(ctx context.Context, folder, id string) error
	SendFunc          func(ctx context.Context, draft himalaya.Draft) (string, error)
	ListFoldersFunc   func(ctx context.Context) ([]himalaya.Folder, error)
	MarkAnsweredFunc  func(ctx context.Context, folder, id string) error

	mu    sync.Mutex
	calls []string
}

// NewMockClient returns a mock whose INBOX holds envs.
func NewMockClient(envs ...himalaya.Envelope) *MockClient {
	return &MockClient{
		Envelopes: map[string][]himalaya.Envelope{himalaya.InboxName: envs},
		Messages:  make(map[string]*himalaya.Message),
	}
}

func (m *MockClient) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls, e.g. "list INBOX 0 20".
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockClient) Account() string { return m.AccountName }

func (m *MockClient) ListEnvelopes(ctx context.Context, folder string, page, pageSize int) ([]himalaya.Envelope, error) {
	m.record("list %s %d %d", folder, page, pageSize)
	if m.ListEnvelopesFunc != nil {
		return m.ListEnvelopesFunc(ctx, folder, page, pageSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.Envelopes[folder]
	start := page * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := min(start+pageSize, len(all))
	return append([]himalaya.Envelope(nil), all[start:end]...), nil
}

func (m *MockClient) ReadMessage(ctx context.Context, folder, id string, markSeen bool) (*himalaya.Message, error) {
	m.record("read %s %s %t", folder, id, markSeen)
	if m.ReadMessageFunc != nil {
		return m.ReadMessageFunc(ctx, folder, id, markSeen)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.Messages[id]
	if !ok {
		return nil, &himalaya.ClientError{Op: "read message", Kind: himalaya.KindNotFound, Diagnostic: "message " + id + " not found"}
	}
	if markSeen {
		m.setEnvelope(folder, id, func(e *himalaya.Envelope) { e.Seen = true })
	}
	cp := *msg
	cp.ID, cp.Folder = id, folder
	return &cp, nil
}

func (m *MockClient) DeleteMessage(ctx context.Context, folder, id string) error {
	m.record("delete %s %s", folder, id)
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, folder, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	envs := m.Envelopes[folder]
	for i, e := range envs {
		if e.ID == id {
			m.Envelopes[folder] = append(envs[:i:i], envs[i+1:]...)
			return nil
		}
	}
	return &himalaya.ClientError{Op: "delete message", Kind: himalaya.KindNotFound, Diagnostic: "message " + id + " not found"}
}

func (m *MockClient) Send(ctx context.Context, draft himalaya.Draft) (string, error) {
	m.record("send %s", draft.To)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, draft)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, draft)
	if m.SendReply != "" {
		return m.SendReply, nil
	}
	return "Email sent.", nil
}

func (m *MockClient) ListFolders(ctx context.Context) ([]himalaya.Folder, error) {
	m.record("folders")
	if m.ListFoldersFunc != nil {
		return m.ListFoldersFunc(ctx)
	}
	if m.Folders == nil {
		return []himalaya.Folder{{Name: himalaya.InboxName}}, nil
	}
	return m.Folders, nil
}

func (m *MockClient) MarkAnswered(ctx context.Context, folder, id string) error {
	m.record("answered %s %s", folder, id)
	if m.MarkAnsweredFunc != nil {
		return m.MarkAnsweredFunc(ctx, folder, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setEnvelope(folder, id, func(e *himalaya.Envelope) { e.Answered = true })
	return nil
}

// setEnvelope applies fn to the stored envelope. Callers hold m.mu.
func (m *MockClient) setEnvelope(folder, id string, fn func(*himalaya.Envelope)) {
	envs := m.Envelopes[folder]
	for i := range envs {
		if envs[i].ID == id {
			fn(&envs[i])
			return
		}
	}
}
