package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/caderno-vivo/caderno/internal/common"
	"github.com/caderno-vivo/caderno/internal/model"
)

// mockMessageStore is an in-memory service.MessageStore with switchable
// failure modes.
type mockMessageStore struct {
	mu       sync.Mutex
	messages map[string]model.PendingMessage
	subs     map[<-chan struct{}]chan struct{}

	failStatusWrite  bool // UpdateMessageStatus fails
	failStatusOnly   bool // UpdateMessageStatusOnly fails too
	statusWriteCalls int
	statusOnlyCalls  int
}

func newMockMessageStore() *mockMessageStore {
	return &mockMessageStore{
		messages: make(map[string]model.PendingMessage),
		subs:     make(map[<-chan struct{}]chan struct{}),
	}
}

func (m *mockMessageStore) add(msg model.PendingMessage) {
	m.mu.Lock()
	if msg.Status == "" {
		msg.Status = model.StatusPending
	}
	m.messages[msg.ID] = msg
	m.mu.Unlock()
	m.notify()
}

func (m *mockMessageStore) get(id string) model.PendingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[id]
}

func (m *mockMessageStore) GetTriageMessages(_ context.Context) ([]model.PendingMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PendingMessage
	for _, msg := range m.messages {
		if msg.Status == model.StatusPending || msg.Status == model.StatusError {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockMessageStore) GetMessageByID(_ context.Context, id string) (*model.PendingMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	return &msg, nil
}

func (m *mockMessageStore) UpdateMessageStatus(_ context.Context, id string, status model.MessageStatus, reason string) error {
	m.mu.Lock()
	m.statusWriteCalls++
	if m.failStatusWrite {
		m.mu.Unlock()
		return errors.New("simulated status+reason write failure")
	}
	msg, ok := m.messages[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	msg.Status = status
	msg.DiscardReason = reason
	m.messages[id] = msg
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *mockMessageStore) UpdateMessageStatusOnly(_ context.Context, id string, status model.MessageStatus) error {
	m.mu.Lock()
	m.statusOnlyCalls++
	if m.failStatusOnly {
		m.mu.Unlock()
		return errors.New("simulated status-only write failure")
	}
	msg, ok := m.messages[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	msg.Status = status
	m.messages[id] = msg
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *mockMessageStore) DeleteMessages(_ context.Context, ids []string) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.messages, id)
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *mockMessageStore) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var key <-chan struct{} = ch
	m.subs[key] = ch
	return ch
}

func (m *mockMessageStore) Unsubscribe(ch <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.subs[ch]; ok {
		close(c)
		delete(m.subs, ch)
	}
}

func (m *mockMessageStore) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// mockReferenceStore serves a fixed reference set.
type mockReferenceStore struct {
	refs model.ReferenceSet
}

func (m *mockReferenceStore) GetCategories(_ context.Context) ([]model.Category, error) {
	return m.refs.Categories, nil
}

func (m *mockReferenceStore) GetAccounts(_ context.Context) ([]model.Account, error) {
	return m.refs.Accounts, nil
}

func (m *mockReferenceStore) GetClients(_ context.Context) ([]model.Client, error) {
	return m.refs.Clients, nil
}

// mockLedgerStore records saves in memory with a switchable failure mode.
type mockLedgerStore struct {
	mu           sync.Mutex
	transactions []model.TransactionRecord
	sales        []model.SaleRecord
	failSave     bool
}

func (m *mockLedgerStore) SaveTransaction(_ context.Context, record *model.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("simulated ledger write failure")
	}
	m.transactions = append(m.transactions, *record)
	return nil
}

func (m *mockLedgerStore) SaveSale(_ context.Context, record *model.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("simulated ledger write failure")
	}
	m.sales = append(m.sales, *record)
	return nil
}

func (m *mockLedgerStore) GetTransactionsBySourceMessage(_ context.Context, messageID string) ([]model.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TransactionRecord
	for _, r := range m.transactions {
		if r.SourceMessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) GetSalesBySourceMessage(_ context.Context, messageID string) ([]model.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SaleRecord
	for _, r := range m.sales {
		if r.SourceMessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

// mockRefiner returns a fixed refinement and counts calls; fails when told
// to. inCall guards the one-in-flight invariant, and delay keeps each call
// in flight long enough for concurrent callers to collide.
type mockRefiner struct {
	mu         sync.Mutex
	refinement *model.Refinement
	err        error
	delay      time.Duration
	calls      []string
	inCall     bool
	overlapped bool
}

func (m *mockRefiner) Refine(_ context.Context, content string, _ model.ReferenceSet) (*model.Refinement, error) {
	m.mu.Lock()
	if m.inCall {
		m.overlapped = true
	}
	m.inCall = true
	m.calls = append(m.calls, content)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	defer func() {
		m.mu.Lock()
		m.inCall = false
		m.mu.Unlock()
	}()

	if m.err != nil {
		return nil, m.err
	}
	return m.refinement, nil
}
