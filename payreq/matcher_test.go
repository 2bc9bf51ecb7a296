package payreq_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/payreq"
)

const sid = ledger.SessionID("payreq-session")

func date(d int) time.Time {
	return time.Date(2026, time.July, d, 0, 0, 0, 0, time.UTC)
}

func deposit(id ledger.TransactionID, at time.Time, amount float64) ledger.Transaction {
	return ledger.Transaction{ID: id, SessionID: sid, Date: at, Amount: ledger.NewMoney(amount), Type: ledger.Deposit}
}

func request(id ledger.RequestID, created time.Time, amount float64, slots int) ledger.PaymentRequest {
	return ledger.PaymentRequest{
		ID:               id,
		SessionID:        sid,
		Description:      "split",
		DueDate:          date(28),
		Amount:           ledger.NewMoney(amount),
		NumberOfRequests: slots,
		CreatedClock:     created,
	}
}

func matchedIDs(t *testing.T, r ledger.PaymentRequest, want ...ledger.TransactionID) {
	t.Helper()
	if len(r.MatchedTransactionIDs) != len(want) {
		t.Fatalf("expected %d matches, got %v", len(want), r.MatchedTransactionIDs)
	}
	for i, id := range want {
		if r.MatchedTransactionIDs[i] != id {
			t.Fatalf("expected matches %v, got %v", want, r.MatchedTransactionIDs)
		}
	}
}

// =============================================================================
// SNAPSHOT MATCHING
// =============================================================================

func TestMatchSnapshot_ExactAmountFillsSlot(t *testing.T) {
	// GIVEN: A two-slot request and two exact-amount deposits
	// WHEN: Matching
	// THEN: Both slots fill and the request is marked filled

	reqs := []ledger.PaymentRequest{request(1, date(1), 25, 2)}
	txs := []ledger.Transaction{
		deposit(10, date(2), 25),
		deposit(11, date(3), 25),
	}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0], 10, 11)
	if !reqs[0].Filled {
		t.Fatal("expected request to be filled")
	}
}

func TestMatchSnapshot_AmountMustEqualExactly(t *testing.T) {
	reqs := []ledger.PaymentRequest{request(1, date(1), 25, 1)}
	txs := []ledger.Transaction{
		deposit(10, date(2), 24.99),
		deposit(11, date(3), 25.01),
		deposit(12, date(4), 50),
	}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0])
	if reqs[0].Filled {
		t.Fatal("expected request to stay unfilled")
	}
}

func TestMatchSnapshot_WithdrawalsNeverMatch(t *testing.T) {
	reqs := []ledger.PaymentRequest{request(1, date(1), 25, 1)}
	txs := []ledger.Transaction{{
		ID: 10, SessionID: sid, Date: date(2),
		Amount: ledger.NewMoney(25), Type: ledger.Withdrawal,
	}}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0])
}

func TestMatchSnapshot_DepositsBeforeCreationIgnored(t *testing.T) {
	// GIVEN: A deposit dated before the request's creation clock
	// WHEN: Matching
	// THEN: It does not count toward the request

	reqs := []ledger.PaymentRequest{request(1, date(10), 25, 1)}
	txs := []ledger.Transaction{
		deposit(10, date(5), 25),
		deposit(11, date(10), 25),
	}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0], 11)
}

func TestMatchSnapshot_OldestRequestTakesTheDeposit(t *testing.T) {
	// GIVEN: Two same-amount requests in creation order
	// WHEN: A single matching deposit arrives
	// THEN: The earlier request claims it; one deposit fills at most one slot

	reqs := []ledger.PaymentRequest{
		request(1, date(1), 25, 1),
		request(2, date(1), 25, 1),
	}
	txs := []ledger.Transaction{deposit(10, date(2), 25)}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0], 10)
	matchedIDs(t, reqs[1])
}

func TestMatchSnapshot_OverflowSpillsToNextRequest(t *testing.T) {
	reqs := []ledger.PaymentRequest{
		request(1, date(1), 25, 1),
		request(2, date(1), 25, 2),
	}
	txs := []ledger.Transaction{
		deposit(10, date(2), 25),
		deposit(11, date(3), 25),
		deposit(12, date(4), 25),
	}

	payreq.MatchSnapshot(reqs, txs)

	matchedIDs(t, reqs[0], 10)
	matchedIDs(t, reqs[1], 11, 12)
	if !reqs[0].Filled || !reqs[1].Filled {
		t.Fatal("expected both requests filled")
	}
}

func TestMatchSnapshot_RecomputesFromScratch(t *testing.T) {
	// Stale match state is discarded; only the snapshot counts.
	r := request(1, date(1), 25, 1)
	r.MatchedTransactionIDs = []ledger.TransactionID{99}
	r.Filled = true
	reqs := []ledger.PaymentRequest{r}

	payreq.MatchSnapshot(reqs, nil)

	matchedIDs(t, reqs[0])
	if reqs[0].Filled {
		t.Fatal("expected filled flag cleared after rematch against empty history")
	}
}

func TestOverdue(t *testing.T) {
	r := request(1, date(1), 25, 1)
	r.DueDate = date(10)

	if payreq.Overdue(r, date(10)) {
		t.Fatal("due date itself is not overdue")
	}
	if !payreq.Overdue(r, date(11)) {
		t.Fatal("expected unfilled request past due to be overdue")
	}
	r.Filled = true
	if payreq.Overdue(r, date(11)) {
		t.Fatal("filled requests are never overdue")
	}
}

// =============================================================================
// STORE-BACKED REMATCH
// =============================================================================

func TestMatcher_RematchPersistsAndUnfills(t *testing.T) {
	// GIVEN: A request filled by a deposit
	// WHEN: The deposit is deleted and a rematch runs
	// THEN: The request reverts to unfilled in the store

	ctx := context.Background()
	m := store.NewMemory()
	if err := m.CreateSession(ctx, ledger.Session{ID: sid, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	r := request(0, date(1), 25, 1)
	if err := m.AppendRequest(ctx, &r); err != nil {
		t.Fatalf("append request: %v", err)
	}
	tx := deposit(0, date(2), 25)
	if err := m.AppendTransaction(ctx, &tx); err != nil {
		t.Fatalf("append transaction: %v", err)
	}

	matcher := payreq.NewMatcher(m)
	reqs, err := matcher.Rematch(ctx, sid)
	if err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if !reqs[0].Filled {
		t.Fatal("expected request filled after matching deposit")
	}

	if err := m.DeleteTransaction(ctx, sid, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	reqs, err = matcher.Rematch(ctx, sid)
	if err != nil {
		t.Fatalf("rematch after delete: %v", err)
	}
	if reqs[0].Filled || len(reqs[0].MatchedTransactionIDs) != 0 {
		t.Fatalf("expected request unfilled after deleting the deposit, got %+v", reqs[0])
	}

	stored, err := m.ListRequests(ctx, sid)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if stored[0].Filled {
		t.Fatal("expected unfilled state persisted")
	}
}
