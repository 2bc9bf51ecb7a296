/*
balance.go - Running balance calculation

PURPOSE:
  Computes the session balance as of a point in time by summing the signed
  amounts of every transaction dated at or before that instant. This is the
  central calculation every analytics component reads from.

RECOMPUTE-ON-READ:
  Nothing is cached across mutations. A deleted transaction stops
  contributing the moment it is gone; values already returned to callers
  are never retroactively changed.
*/
package ledger

import (
	"context"
	"time"
)

// SumAsOf sums the signed amounts of all transactions dated at or before t.
// Pure function over a snapshot slice.
func SumAsOf(txs []Transaction, t time.Time) Money {
	balance := ZeroMoney()
	for _, tx := range txs {
		if tx.Date.After(t) {
			continue
		}
		balance = balance.Add(tx.Signed())
	}
	return balance
}

// =============================================================================
// CALCULATOR - Session-level balance contract
// =============================================================================

// Calculator answers balance queries against the store.
type Calculator struct {
	Store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{Store: store}
}

// AsOf returns the running balance of the session at t. Fails with NotFound
// for an unknown session.
func (c *Calculator) AsOf(ctx context.Context, sid SessionID, t time.Time) (Money, error) {
	txs, err := c.snapshot(ctx, sid)
	if err != nil {
		return Money{}, err
	}
	return SumAsOf(txs, t), nil
}

// Clock returns the session clock: the date of the newest transaction, zero
// for an empty session.
func (c *Calculator) Clock(ctx context.Context, sid SessionID) (time.Time, error) {
	txs, err := c.snapshot(ctx, sid)
	if err != nil {
		return time.Time{}, err
	}
	return ClockOf(txs), nil
}

func (c *Calculator) snapshot(ctx context.Context, sid SessionID) ([]Transaction, error) {
	ok, err := c.Store.HasSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Kind: "session", ID: sid}
	}
	return c.Store.ListTransactions(ctx, sid, TransactionFilter{})
}
