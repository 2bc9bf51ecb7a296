/*
Package ledger provides the core analytics engine for a per-session
personal-finance ledger.

PURPOSE:
  This package contains the session-scoped domain types and the two
  foundational calculations every other component builds on: the running
  balance as of an instant, and the OHLCV balance-history buckets.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: a two-decimal monetary quantity backed by decimal.Decimal
  - Transaction: a dated deposit or withdrawal owned by a session
  - Category / CategoryRule: user-defined labels and auto-label rules
  - SavingGoal / PaymentRequest / UserMessage: derived-analytics entities

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 arithmetic
  2. Session scoping: every entity carries its SessionID; a session has
     no visibility into another session's entities
  3. Recompute-on-read: balances and analytics are derived from the
     current transaction list, never cached across mutations

SEE ALSO:
  - balance.go: running balance from the ordered transaction list
  - history.go: interval bucketing (open/high/low/close/volume)
  - store.go: persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Two-decimal monetary amount
// =============================================================================

// Money is a signed monetary quantity. Amounts on transactions are stored
// unsigned; the sign is derived from the transaction type when computing
// balances.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money               { return Money{Value: m.Value.Abs()} }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Round2 rounds to two decimal places. Applied at the API boundary; internal
// arithmetic keeps full precision.
func (m Money) Round2() Money { return Money{Value: m.Value.Round(2)} }

// Float64 returns the amount rounded to two decimals as a float64.
func (m Money) Float64() float64 {
	f, _ := m.Value.Round(2).Float64()
	return f
}

func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// SessionID is an opaque session token. All other entities are scoped to
// exactly one session.
type SessionID string

// Numeric entity ids are unique within their entity type across all sessions;
// stores allocate them monotonically.
type (
	TransactionID int64
	CategoryID    int64
	RuleID        int64
	GoalID        int64
	RequestID     int64
	MessageID     int64
)

// =============================================================================
// SESSION
// =============================================================================

type Session struct {
	ID        SessionID
	CreatedAt time.Time
}

// =============================================================================
// TRANSACTION - A dated deposit or withdrawal
// =============================================================================

type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

// ValidTransactionType reports whether s is a known transaction type.
func ValidTransactionType(s string) bool {
	return TransactionType(s) == Deposit || TransactionType(s) == Withdrawal
}

type Transaction struct {
	ID           TransactionID
	SessionID    SessionID
	Date         time.Time // timezone-normalized to UTC
	Amount       Money     // unsigned; sign derived from Type
	Type         TransactionType
	ExternalIBAN string
	Description  string
	CategoryID   *CategoryID // nil = uncategorized

	CreatedAt time.Time // insertion order tiebreak for equal dates
}

// Signed returns the amount with the sign implied by the transaction type:
// deposits are positive, withdrawals negative.
func (t Transaction) Signed() Money {
	if t.Type == Withdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// =============================================================================
// CATEGORY & CATEGORY RULE
// =============================================================================

type Category struct {
	ID        CategoryID
	SessionID SessionID
	Name      string
}

// CategoryRule assigns a category to transactions matching its predicate.
// Empty Description/IBAN act as wildcards; non-empty fields require exact,
// case-sensitive equality. Type must always match exactly.
type CategoryRule struct {
	ID             RuleID
	SessionID      SessionID
	Description    string
	IBAN           string
	Type           TransactionType
	CategoryID     CategoryID
	ApplyOnHistory bool
}

// =============================================================================
// SAVING GOAL
// =============================================================================

// SavingGoal accrues a monthly contribution out of the session surplus until
// the goal amount is reached. CreatedClock is the session clock at creation
// time (zero when the session had no transactions yet); MonthsAccrued is the
// re-entrancy bookkeeping for lazy accrual.
type SavingGoal struct {
	ID                 GoalID
	SessionID          SessionID
	Name               string
	Goal               Money
	SavePerMonth       Money
	MinBalanceRequired Money
	Balance            Money

	CreatedClock  time.Time
	MonthsAccrued int
}

// Reached reports whether the goal has been fully funded.
func (g SavingGoal) Reached() bool {
	return !g.Balance.LessThan(g.Goal)
}

// =============================================================================
// PAYMENT REQUEST
// =============================================================================

// PaymentRequest expects NumberOfRequests exact-amount deposits dated on or
// after its creation. Matches are recomputed from the transaction list on
// every mutation; Filled is derived from the match count. The Notified flags
// deduplicate advisory messages for the filled/overdue transitions.
type PaymentRequest struct {
	ID               RequestID
	SessionID        SessionID
	Description      string
	DueDate          time.Time
	Amount           Money
	NumberOfRequests int

	CreatedClock          time.Time
	MatchedTransactionIDs []TransactionID
	Filled                bool

	NotifiedFilled  bool
	NotifiedOverdue bool
}

// RemainingSlots returns how many installment slots are still open.
func (p PaymentRequest) RemainingSlots() int {
	return p.NumberOfRequests - len(p.MatchedTransactionIDs)
}

// =============================================================================
// USER MESSAGE
// =============================================================================

type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
)

// UserMessage is an advisory generated by the message generator. Messages are
// append-only and retained after the triggering condition ceases; marking as
// read is the only supported mutation.
type UserMessage struct {
	ID        MessageID
	SessionID SessionID
	Type      MessageType
	Text      string
	Read      bool
	CreatedAt time.Time
}
