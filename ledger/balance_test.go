package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testSession = ledger.SessionID("test-session")

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func deposit(id int64, at time.Time, amount float64) ledger.Transaction {
	return ledger.Transaction{
		ID:        ledger.TransactionID(id),
		SessionID: testSession,
		Date:      at,
		Amount:    ledger.NewMoney(amount),
		Type:      ledger.Deposit,
	}
}

func withdrawal(id int64, at time.Time, amount float64) ledger.Transaction {
	return ledger.Transaction{
		ID:        ledger.TransactionID(id),
		SessionID: testSession,
		Date:      at,
		Amount:    ledger.NewMoney(amount),
		Type:      ledger.Withdrawal,
	}
}

func newSessionStore(t *testing.T) ledger.Store {
	t.Helper()
	s := store.NewMemory()
	if err := s.CreateSession(context.Background(), ledger.Session{ID: testSession, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

// =============================================================================
// SUM-AS-OF TESTS
// =============================================================================

func TestSumAsOf_SignsByTransactionType(t *testing.T) {
	// GIVEN: A deposit of 100 and a withdrawal of 40
	// WHEN: Summing as of a later instant
	// THEN: The balance is 60

	txs := []ledger.Transaction{
		deposit(1, date(2026, time.January, 1), 100),
		withdrawal(2, date(2026, time.January, 5), 40),
	}

	got := ledger.SumAsOf(txs, date(2026, time.February, 1))
	if !got.Equal(ledger.NewMoney(60)) {
		t.Errorf("expected balance 60.00, got %s", got)
	}
}

func TestSumAsOf_CutoffIsInclusive(t *testing.T) {
	// GIVEN: A transaction dated exactly at the cutoff
	// WHEN: Summing as of that instant
	// THEN: The transaction contributes

	cutoff := date(2026, time.March, 10)
	txs := []ledger.Transaction{deposit(1, cutoff, 25)}

	got := ledger.SumAsOf(txs, cutoff)
	if !got.Equal(ledger.NewMoney(25)) {
		t.Errorf("expected 25.00 at inclusive cutoff, got %s", got)
	}

	before := cutoff.Add(-time.Nanosecond)
	if got := ledger.SumAsOf(txs, before); !got.IsZero() {
		t.Errorf("expected zero before the transaction date, got %s", got)
	}
}

func TestSumAsOf_EmptySession(t *testing.T) {
	if got := ledger.SumAsOf(nil, date(2026, time.January, 1)); !got.IsZero() {
		t.Errorf("expected zero for empty session, got %s", got)
	}
}

// =============================================================================
// CALCULATOR TESTS
// =============================================================================

func TestCalculator_UnknownSession_NotFound(t *testing.T) {
	// GIVEN: A store without the requested session
	// WHEN: Asking for a balance
	// THEN: The error unwraps to ErrNotFound

	calc := ledger.NewCalculator(store.NewMemory())

	_, err := calc.AsOf(context.Background(), "nope", time.Now())
	if !ledger.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCalculator_DeletedTransactionStopsContributing(t *testing.T) {
	// GIVEN: Two deposits
	// WHEN: One is deleted
	// THEN: The balance reflects only the remaining one

	ctx := context.Background()
	s := newSessionStore(t)
	calc := ledger.NewCalculator(s)

	tx1 := deposit(0, date(2026, time.January, 1), 100)
	tx2 := deposit(0, date(2026, time.January, 2), 50)
	for _, tx := range []*ledger.Transaction{&tx1, &tx2} {
		if err := s.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := s.DeleteTransaction(ctx, testSession, tx1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := calc.AsOf(ctx, testSession, date(2026, time.February, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(ledger.NewMoney(50)) {
		t.Errorf("expected 50.00 after delete, got %s", got)
	}
}

// =============================================================================
// SESSION CLOCK TESTS
// =============================================================================

func TestClockOf_NewestTransactionWins(t *testing.T) {
	// GIVEN: Transactions out of insertion order
	// WHEN: Deriving the session clock
	// THEN: The newest date wins regardless of position

	txs := []ledger.Transaction{
		deposit(1, date(2026, time.May, 1), 10),
		deposit(2, date(2026, time.January, 1), 10),
	}
	if got := ledger.ClockOf(txs); !got.Equal(date(2026, time.May, 1)) {
		t.Errorf("expected clock 2026-05-01, got %v", got)
	}
}

func TestClockOf_EmptySessionIsZero(t *testing.T) {
	if got := ledger.ClockOf(nil); !got.IsZero() {
		t.Errorf("expected zero clock for empty session, got %v", got)
	}
}

func TestWholeMonthsBetween(t *testing.T) {
	cases := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same instant", date(2026, time.January, 15), date(2026, time.January, 15), 0},
		{"one day short", date(2026, time.January, 15), date(2026, time.February, 14), 0},
		{"exactly one month", date(2026, time.January, 15), date(2026, time.February, 15), 1},
		{"four months", date(2026, time.January, 1), date(2026, time.May, 1), 4},
		{"to before from", date(2026, time.May, 1), date(2026, time.January, 1), 0},
		{"across year end", date(2025, time.November, 30), date(2026, time.February, 28), 2},
	}
	for _, tc := range cases {
		if got := ledger.WholeMonthsBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("%s: expected %d months, got %d", tc.name, tc.want, got)
		}
	}
}

// =============================================================================
// INTERVAL PARSING
// =============================================================================

func TestParseInterval(t *testing.T) {
	// Empty selects the default, unknown values fail with InvalidParameter.
	iv, err := ledger.ParseInterval("")
	if err != nil || iv != ledger.DefaultInterval {
		t.Errorf("expected default interval for empty string, got %v, %v", iv, err)
	}

	for _, valid := range []string{"hour", "day", "week", "month", "year"} {
		if _, err := ledger.ParseInterval(valid); err != nil {
			t.Errorf("expected %q to parse, got %v", valid, err)
		}
	}

	_, err = ledger.ParseInterval("fortnight")
	if !ledger.IsInvalid(err) {
		t.Errorf("expected InvalidParameter for unknown interval, got %v", err)
	}
}
