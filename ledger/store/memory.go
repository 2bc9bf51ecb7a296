// Package store provides an in-memory ledger.Store implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every table in maps keyed by session. Writes hold a single
// mutex, which also gives each session the serialization the engine assumes.
type Memory struct {
	mu sync.RWMutex

	sessions     map[ledger.SessionID]ledger.Session
	transactions map[ledger.SessionID][]ledger.Transaction
	categories   map[ledger.SessionID][]ledger.Category
	rules        map[ledger.SessionID][]ledger.CategoryRule
	goals        map[ledger.SessionID][]ledger.SavingGoal
	requests     map[ledger.SessionID][]ledger.PaymentRequest
	messages     map[ledger.SessionID][]ledger.UserMessage

	nextTransaction ledger.TransactionID
	nextCategory    ledger.CategoryID
	nextRule        ledger.RuleID
	nextGoal        ledger.GoalID
	nextRequest     ledger.RequestID
	nextMessage     ledger.MessageID
}

func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[ledger.SessionID]ledger.Session),
		transactions: make(map[ledger.SessionID][]ledger.Transaction),
		categories:   make(map[ledger.SessionID][]ledger.Category),
		rules:        make(map[ledger.SessionID][]ledger.CategoryRule),
		goals:        make(map[ledger.SessionID][]ledger.SavingGoal),
		requests:     make(map[ledger.SessionID][]ledger.PaymentRequest),
		messages:     make(map[ledger.SessionID][]ledger.UserMessage),
	}
}

var _ ledger.Store = (*Memory)(nil)

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Memory) CreateSession(_ context.Context, s ledger.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) HasSession(_ context.Context, id ledger.SessionID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]ledger.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTransaction++
	tx.ID = m.nextTransaction
	m.insertTransactionLocked(*tx)
	return nil
}

// insertTransactionLocked keeps the slice ordered by date, creation order
// breaking ties. Binary search for the insertion point.
func (m *Memory) insertTransactionLocked(tx ledger.Transaction) {
	txs := m.transactions[tx.SessionID]
	i := sort.Search(len(txs), func(i int) bool {
		if !txs[i].Date.Equal(tx.Date) {
			return txs[i].Date.After(tx.Date)
		}
		return txs[i].ID > tx.ID
	})
	txs = append(txs, ledger.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.SessionID] = txs
}

func (m *Memory) GetTransaction(_ context.Context, sid ledger.SessionID, id ledger.TransactionID) (ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tx := range m.transactions[sid] {
		if tx.ID == id {
			return tx, nil
		}
	}
	return ledger.Transaction{}, &ledger.NotFoundError{Kind: "transaction", ID: id}
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.removeTransactionLocked(tx.SessionID, tx.ID) {
		return &ledger.NotFoundError{Kind: "transaction", ID: tx.ID}
	}
	// Reinsert: the date may have moved.
	m.insertTransactionLocked(tx)
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, sid ledger.SessionID, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.removeTransactionLocked(sid, id) {
		return &ledger.NotFoundError{Kind: "transaction", ID: id}
	}
	return nil
}

func (m *Memory) removeTransactionLocked(sid ledger.SessionID, id ledger.TransactionID) bool {
	txs := m.transactions[sid]
	for i, tx := range txs {
		if tx.ID == id {
			m.transactions[sid] = append(txs[:i:i], txs[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Memory) ListTransactions(_ context.Context, sid ledger.SessionID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Transaction
	for _, tx := range m.transactions[sid] {
		if !f.From.IsZero() && tx.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && tx.Date.After(f.To) {
			continue
		}
		if f.CategoryID != 0 && (tx.CategoryID == nil || *tx.CategoryID != f.CategoryID) {
			continue
		}
		out = append(out, tx)
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []ledger.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}

	return append([]ledger.Transaction(nil), out...), nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (m *Memory) AppendCategory(_ context.Context, c *ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCategory++
	c.ID = m.nextCategory
	m.categories[c.SessionID] = append(m.categories[c.SessionID], *c)
	return nil
}

func (m *Memory) GetCategory(_ context.Context, sid ledger.SessionID, id ledger.CategoryID) (ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.categories[sid] {
		if c.ID == id {
			return c, nil
		}
	}
	return ledger.Category{}, &ledger.NotFoundError{Kind: "category", ID: id}
}

func (m *Memory) UpdateCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.categories[c.SessionID]
	for i := range cs {
		if cs[i].ID == c.ID {
			cs[i] = c
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "category", ID: c.ID}
}

func (m *Memory) DeleteCategory(_ context.Context, sid ledger.SessionID, id ledger.CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.categories[sid]
	for i, c := range cs {
		if c.ID == id {
			m.categories[sid] = append(cs[:i:i], cs[i+1:]...)
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "category", ID: id}
}

func (m *Memory) ListCategories(_ context.Context, sid ledger.SessionID) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Category(nil), m.categories[sid]...), nil
}

// =============================================================================
// CATEGORY RULES
// =============================================================================

func (m *Memory) AppendRule(_ context.Context, r *ledger.CategoryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRule++
	r.ID = m.nextRule
	m.rules[r.SessionID] = append(m.rules[r.SessionID], *r)
	return nil
}

func (m *Memory) GetRule(_ context.Context, sid ledger.SessionID, id ledger.RuleID) (ledger.CategoryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules[sid] {
		if r.ID == id {
			return r, nil
		}
	}
	return ledger.CategoryRule{}, &ledger.NotFoundError{Kind: "categoryRule", ID: id}
}

func (m *Memory) UpdateRule(_ context.Context, r ledger.CategoryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs := m.rules[r.SessionID]
	for i := range rs {
		if rs[i].ID == r.ID {
			rs[i] = r
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "categoryRule", ID: r.ID}
}

func (m *Memory) DeleteRule(_ context.Context, sid ledger.SessionID, id ledger.RuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs := m.rules[sid]
	for i, r := range rs {
		if r.ID == id {
			m.rules[sid] = append(rs[:i:i], rs[i+1:]...)
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "categoryRule", ID: id}
}

func (m *Memory) ListRules(_ context.Context, sid ledger.SessionID) ([]ledger.CategoryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.CategoryRule(nil), m.rules[sid]...), nil
}

// =============================================================================
// SAVING GOALS
// =============================================================================

func (m *Memory) AppendGoal(_ context.Context, g *ledger.SavingGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextGoal++
	g.ID = m.nextGoal
	m.goals[g.SessionID] = append(m.goals[g.SessionID], *g)
	return nil
}

func (m *Memory) GetGoal(_ context.Context, sid ledger.SessionID, id ledger.GoalID) (ledger.SavingGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, g := range m.goals[sid] {
		if g.ID == id {
			return g, nil
		}
	}
	return ledger.SavingGoal{}, &ledger.NotFoundError{Kind: "savingGoal", ID: id}
}

func (m *Memory) UpdateGoal(_ context.Context, g ledger.SavingGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs := m.goals[g.SessionID]
	for i := range gs {
		if gs[i].ID == g.ID {
			gs[i] = g
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "savingGoal", ID: g.ID}
}

func (m *Memory) DeleteGoal(_ context.Context, sid ledger.SessionID, id ledger.GoalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs := m.goals[sid]
	for i, g := range gs {
		if g.ID == id {
			m.goals[sid] = append(gs[:i:i], gs[i+1:]...)
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "savingGoal", ID: id}
}

func (m *Memory) ListGoals(_ context.Context, sid ledger.SessionID) ([]ledger.SavingGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.SavingGoal(nil), m.goals[sid]...), nil
}

// =============================================================================
// PAYMENT REQUESTS
// =============================================================================

func (m *Memory) AppendRequest(_ context.Context, r *ledger.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRequest++
	r.ID = m.nextRequest
	m.requests[r.SessionID] = append(m.requests[r.SessionID], cloneRequest(*r))
	return nil
}

func (m *Memory) UpdateRequest(_ context.Context, r ledger.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs := m.requests[r.SessionID]
	for i := range rs {
		if rs[i].ID == r.ID {
			rs[i] = cloneRequest(r)
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "paymentRequest", ID: r.ID}
}

func (m *Memory) ListRequests(_ context.Context, sid ledger.SessionID) ([]ledger.PaymentRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.PaymentRequest, 0, len(m.requests[sid]))
	for _, r := range m.requests[sid] {
		out = append(out, cloneRequest(r))
	}
	return out, nil
}

func cloneRequest(r ledger.PaymentRequest) ledger.PaymentRequest {
	r.MatchedTransactionIDs = append([]ledger.TransactionID(nil), r.MatchedTransactionIDs...)
	return r
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Memory) AppendMessage(_ context.Context, msg *ledger.UserMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMessage++
	msg.ID = m.nextMessage
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

func (m *Memory) GetMessage(_ context.Context, sid ledger.SessionID, id ledger.MessageID) (ledger.UserMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, msg := range m.messages[sid] {
		if msg.ID == id {
			return msg, nil
		}
	}
	return ledger.UserMessage{}, &ledger.NotFoundError{Kind: "message", ID: id}
}

func (m *Memory) MarkMessageRead(_ context.Context, sid ledger.SessionID, id ledger.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := m.messages[sid]
	for i := range ms {
		if ms[i].ID == id {
			ms[i].Read = true
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "message", ID: id}
}

func (m *Memory) ListMessages(_ context.Context, sid ledger.SessionID) ([]ledger.UserMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.UserMessage(nil), m.messages[sid]...), nil
}
