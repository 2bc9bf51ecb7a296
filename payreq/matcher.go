/*
Package payreq matches incoming deposits against outstanding payment
requests.

MATCHING RULES:
  A deposit can fill one installment slot of one request when its amount
  equals the request amount exactly and it is dated on or after the
  request's creation (session clock at creation time). Deposits are
  replayed in chronological order; each one goes to the least-recently
  created unfilled request with remaining slots. A request is filled the
  moment its match count reaches numberOfRequests.

RECOMPUTATION:
  Matches are not maintained incrementally. Every ledger mutation
  triggers a full rematch pass over the session's deposits, so deleting
  a matched transaction naturally un-matches it and can revert a request
  to unfilled.
*/
package payreq

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// MatchSnapshot recomputes the matches of every request from scratch against
// the transaction snapshot (ordered by date ascending). Mutates the request
// slice in place.
func MatchSnapshot(reqs []ledger.PaymentRequest, txs []ledger.Transaction) {
	for i := range reqs {
		reqs[i].MatchedTransactionIDs = nil
		reqs[i].Filled = false
	}

	for _, tx := range txs {
		if tx.Type != ledger.Deposit {
			continue
		}
		for i := range reqs {
			r := &reqs[i]
			if r.Filled || r.RemainingSlots() <= 0 {
				continue
			}
			if !r.Amount.Equal(tx.Amount) {
				continue
			}
			if tx.Date.Before(r.CreatedClock) {
				continue
			}
			r.MatchedTransactionIDs = append(r.MatchedTransactionIDs, tx.ID)
			if len(r.MatchedTransactionIDs) == r.NumberOfRequests {
				r.Filled = true
			}
			break // one request per deposit
		}
	}
}

// Overdue reports whether the request is past due and still unfilled at the
// given session clock.
func Overdue(r ledger.PaymentRequest, clock time.Time) bool {
	return !r.Filled && clock.After(r.DueDate)
}

// =============================================================================
// MATCHER - Store-backed rematching
// =============================================================================

// Matcher recomputes and persists payment-request matches.
type Matcher struct {
	Store ledger.Store
}

func NewMatcher(store ledger.Store) *Matcher {
	return &Matcher{Store: store}
}

// Rematch replays the session's deposits against its requests and persists
// every request whose derived state changed. Returns the post-pass requests
// in creation order.
func (m *Matcher) Rematch(ctx context.Context, sid ledger.SessionID) ([]ledger.PaymentRequest, error) {
	reqs, err := m.Store.ListRequests(ctx, sid)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return reqs, nil
	}
	txs, err := m.Store.ListTransactions(ctx, sid, ledger.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	before := make(map[ledger.RequestID]ledger.PaymentRequest, len(reqs))
	for _, r := range reqs {
		before[r.ID] = r
	}

	MatchSnapshot(reqs, txs)

	for _, r := range reqs {
		if changed(before[r.ID], r) {
			if err := m.Store.UpdateRequest(ctx, r); err != nil {
				return nil, err
			}
		}
	}
	return reqs, nil
}

func changed(a, b ledger.PaymentRequest) bool {
	if a.Filled != b.Filled || len(a.MatchedTransactionIDs) != len(b.MatchedTransactionIDs) {
		return true
	}
	for i := range a.MatchedTransactionIDs {
		if a.MatchedTransactionIDs[i] != b.MatchedTransactionIDs[i] {
			return true
		}
	}
	return false
}
