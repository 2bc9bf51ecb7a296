/*
Package goals accrues monthly saving-goal contributions from the session
surplus.

ACCRUAL MODEL:
  Time advances with the session clock (date of the newest transaction),
  not wall time. For every whole calendar month elapsed since a goal's
  creation that has not been accrued yet, the goal balance grows by

    min(savePerMonth, goal - balance, surplus)

  where surplus is the session balance at the clock minus the goal's
  minimum required balance minus everything already committed to goals
  with higher priority (creation order) and to this goal itself. Balances
  never decrease and stop growing at the goal amount.

RE-ENTRANCY:
  Accrue is invoked lazily on every read and after every mutation. Each
  goal records how many months have been accrued, so repeating the call
  at the same clock is a no-op beyond the first.

CREATION BASE:
  A goal records the session clock at creation. When the session had no
  transactions yet, accrual counts months from the first transaction
  date instead.
*/
package goals

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// Contribution records the total amount a single Accrue pass added to a goal.
type Contribution struct {
	Goal   ledger.SavingGoal
	Amount ledger.Money
}

// AccrueSnapshot runs the accrual pass over an in-memory snapshot. It mutates
// the goal slice in place and returns one contribution per goal that grew.
// Pure apart from the slice mutation; persistence is the Tracker's job.
func AccrueSnapshot(gs []ledger.SavingGoal, txs []ledger.Transaction) []Contribution {
	clock := ledger.ClockOf(txs)
	if clock.IsZero() {
		return nil
	}
	balance := ledger.SumAsOf(txs, clock)

	var contributions []Contribution
	committed := ledger.ZeroMoney()

	for i := range gs {
		g := &gs[i]
		base := accrualBase(*g, txs)
		pending := ledger.WholeMonthsBetween(base, clock) - g.MonthsAccrued
		grown := ledger.ZeroMoney()

		for m := 0; m < pending; m++ {
			surplus := balance.Sub(g.MinBalanceRequired).Sub(committed).Sub(g.Balance)
			c := g.SavePerMonth.Min(g.Goal.Sub(g.Balance)).Min(surplus)
			if c.IsPositive() {
				g.Balance = g.Balance.Add(c)
				grown = grown.Add(c)
			}
		}
		if pending > 0 {
			g.MonthsAccrued += pending
		}
		committed = committed.Add(g.Balance)

		if grown.IsPositive() {
			contributions = append(contributions, Contribution{Goal: *g, Amount: grown})
		}
	}
	return contributions
}

func accrualBase(g ledger.SavingGoal, txs []ledger.Transaction) time.Time {
	if !g.CreatedClock.IsZero() {
		return g.CreatedClock
	}
	// Goal predates all transactions: months count from the first activity.
	base := time.Time{}
	for _, tx := range txs {
		if base.IsZero() || tx.Date.Before(base) {
			base = tx.Date
		}
	}
	return base
}

// =============================================================================
// TRACKER - Store-backed lazy accrual
// =============================================================================

// Tracker loads the session snapshot, runs the accrual pass, and persists
// goals that changed.
type Tracker struct {
	Store ledger.Store
}

func NewTracker(store ledger.Store) *Tracker {
	return &Tracker{Store: store}
}

// Accrue brings every goal of the session up to date with the session clock.
// Idempotent; safe for the caller to retry.
func (t *Tracker) Accrue(ctx context.Context, sid ledger.SessionID) ([]Contribution, error) {
	gs, err := t.Store.ListGoals(ctx, sid)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return nil, nil
	}
	txs, err := t.Store.ListTransactions(ctx, sid, ledger.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	before := make(map[ledger.GoalID]ledger.SavingGoal, len(gs))
	for _, g := range gs {
		before[g.ID] = g
	}

	contributions := AccrueSnapshot(gs, txs)

	for _, g := range gs {
		prev := before[g.ID]
		if g.MonthsAccrued != prev.MonthsAccrued || !g.Balance.Equal(prev.Balance) {
			if err := t.Store.UpdateGoal(ctx, g); err != nil {
				return nil, err
			}
		}
	}
	return contributions, nil
}
