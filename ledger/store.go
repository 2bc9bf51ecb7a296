/*
store.go - Persistence interfaces for the ledger and its entity tables

PURPOSE:
  Defines the boundary between the analytics engine and the database. The
  engine only needs ordered transaction queries plus CRUD on the entity
  tables; the concrete backend (SQLite in production, in-memory in tests)
  provides per-session serialization of writes.

CONTRACT NOTES:
  - ListTransactions returns the session's transactions ordered by date
    ascending, insertion order breaking ties. A zero Limit means unbounded;
    the HTTP layer applies the default page size of 20.
  - Append* methods allocate ids monotonically and write them back into the
    passed entity.
  - Update/Delete/Get fail with NotFound when the id is unknown or owned by
    a different session.

IMPLEMENTATIONS:
  - store/sqlite: production backend
  - ledger/store:  in-memory backend for tests and dev
*/
package ledger

import (
	"context"
	"time"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Offset     int
	Limit      int // 0 = unbounded
	From, To   time.Time
	CategoryID CategoryID // 0 = any
}

// SessionStore issues and checks session tokens. ListSessions exists for the
// background sweeper, which walks every session.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	HasSession(ctx context.Context, id SessionID) (bool, error)
	ListSessions(ctx context.Context) ([]Session, error)
}

// TransactionStore is the ordered-transaction query capability the analytics
// engine is built on.
type TransactionStore interface {
	AppendTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, sid SessionID, id TransactionID) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, sid SessionID, id TransactionID) error
	ListTransactions(ctx context.Context, sid SessionID, f TransactionFilter) ([]Transaction, error)
}

// CategoryStore holds user-defined categories.
type CategoryStore interface {
	AppendCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, sid SessionID, id CategoryID) (Category, error)
	UpdateCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, sid SessionID, id CategoryID) error
	ListCategories(ctx context.Context, sid SessionID) ([]Category, error)
}

// RuleStore holds category rules in creation order.
type RuleStore interface {
	AppendRule(ctx context.Context, r *CategoryRule) error
	GetRule(ctx context.Context, sid SessionID, id RuleID) (CategoryRule, error)
	UpdateRule(ctx context.Context, r CategoryRule) error
	DeleteRule(ctx context.Context, sid SessionID, id RuleID) error
	ListRules(ctx context.Context, sid SessionID) ([]CategoryRule, error)
}

// GoalStore holds saving goals in creation order (accrual priority).
type GoalStore interface {
	AppendGoal(ctx context.Context, g *SavingGoal) error
	GetGoal(ctx context.Context, sid SessionID, id GoalID) (SavingGoal, error)
	UpdateGoal(ctx context.Context, g SavingGoal) error
	DeleteGoal(ctx context.Context, sid SessionID, id GoalID) error
	ListGoals(ctx context.Context, sid SessionID) ([]SavingGoal, error)
}

// RequestStore holds payment requests in creation order (matching priority).
type RequestStore interface {
	AppendRequest(ctx context.Context, p *PaymentRequest) error
	UpdateRequest(ctx context.Context, p PaymentRequest) error
	ListRequests(ctx context.Context, sid SessionID) ([]PaymentRequest, error)
}

// MessageStore holds advisory messages. Append-only apart from the read flag.
type MessageStore interface {
	AppendMessage(ctx context.Context, m *UserMessage) error
	GetMessage(ctx context.Context, sid SessionID, id MessageID) (UserMessage, error)
	MarkMessageRead(ctx context.Context, sid SessionID, id MessageID) error
	ListMessages(ctx context.Context, sid SessionID) ([]UserMessage, error)
}

// Store is the full persistence surface the service needs.
type Store interface {
	SessionStore
	TransactionStore
	CategoryStore
	RuleStore
	GoalStore
	RequestStore
	MessageStore
}
