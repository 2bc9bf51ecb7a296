package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/sqlite"
)

const sid = ledger.SessionID("sqlite-session")

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateSession(context.Background(), ledger.Session{ID: sid, CreatedAt: time.Now().UTC()}))
	return s
}

func date(d, hour int) time.Time {
	return time.Date(2026, time.August, d, hour, 0, 0, 0, time.UTC)
}

func TestSessionRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ok, err := s.HasSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasSession(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sid, sessions[0].ID)
}

func TestTransactionOrderingSurvivesFractionalSeconds(t *testing.T) {
	// Mixed sub-second precision must still list chronologically; the
	// column format is fixed width exactly for this.
	s := newStore(t)
	ctx := context.Background()

	times := []time.Time{
		date(3, 12).Add(500 * time.Millisecond),
		date(3, 12),
		date(1, 9).Add(123456789 * time.Nanosecond),
		date(2, 0),
	}
	for _, at := range times {
		tx := ledger.Transaction{SessionID: sid, Date: at, Amount: ledger.NewMoney(10), Type: ledger.Deposit}
		require.NoError(t, s.AppendTransaction(ctx, &tx))
	}

	txs, err := s.ListTransactions(ctx, sid, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 4)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Date.Before(txs[i-1].Date), "expected chronological order at index %d", i)
	}
	assert.True(t, txs[0].Date.Equal(times[2]), "nanosecond precision must round-trip")
}

func TestTransactionCRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cat := ledger.Category{SessionID: sid, Name: "groceries"}
	require.NoError(t, s.AppendCategory(ctx, &cat))

	catID := cat.ID
	tx := ledger.Transaction{
		SessionID: sid, Date: date(1, 12),
		Amount: ledger.NewMoney(19.99), Type: ledger.Withdrawal,
		Description: "weekly shop", ExternalIBAN: "NL39RABO0300065264",
		CategoryID: &catID, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.AppendTransaction(ctx, &tx))
	require.NotZero(t, tx.ID)

	got, err := s.GetTransaction(ctx, sid, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(ledger.NewMoney(19.99)))
	assert.Equal(t, "weekly shop", got.Description)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)

	got.Amount = ledger.NewMoney(25)
	got.CategoryID = nil
	require.NoError(t, s.UpdateTransaction(ctx, got))
	again, err := s.GetTransaction(ctx, sid, tx.ID)
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(ledger.NewMoney(25)))
	assert.Nil(t, again.CategoryID)

	require.NoError(t, s.DeleteTransaction(ctx, sid, tx.ID))
	_, err = s.GetTransaction(ctx, sid, tx.ID)
	assert.True(t, ledger.IsNotFound(err))
	assert.True(t, ledger.IsNotFound(s.DeleteTransaction(ctx, sid, tx.ID)))
}

func TestTransactionFilters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		tx := ledger.Transaction{SessionID: sid, Date: date(d, 12), Amount: ledger.NewMoney(float64(d)), Type: ledger.Deposit}
		require.NoError(t, s.AppendTransaction(ctx, &tx))
	}

	page, err := s.ListTransactions(ctx, sid, ledger.TransactionFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, date(3, 12), page[0].Date)

	unbounded, err := s.ListTransactions(ctx, sid, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, unbounded, 5)
}

func TestRuleAndGoalRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cat := ledger.Category{SessionID: sid, Name: "income"}
	require.NoError(t, s.AppendCategory(ctx, &cat))

	rule := ledger.CategoryRule{
		SessionID: sid, Type: ledger.Deposit, Description: "Salary",
		IBAN: "NL01", CategoryID: cat.ID, ApplyOnHistory: true,
	}
	require.NoError(t, s.AppendRule(ctx, &rule))
	gotRule, err := s.GetRule(ctx, sid, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Description, gotRule.Description)
	assert.True(t, gotRule.ApplyOnHistory)

	goal := ledger.SavingGoal{
		SessionID: sid, Name: "Vacation",
		Goal: ledger.NewMoney(1500), SavePerMonth: ledger.NewMoney(250),
		MinBalanceRequired: ledger.NewMoney(500),
		Balance:            ledger.ZeroMoney(),
		CreatedClock:       date(1, 0),
	}
	require.NoError(t, s.AppendGoal(ctx, &goal))

	goal.Balance = ledger.NewMoney(250)
	goal.MonthsAccrued = 1
	require.NoError(t, s.UpdateGoal(ctx, goal))

	gotGoal, err := s.GetGoal(ctx, sid, goal.ID)
	require.NoError(t, err)
	assert.True(t, gotGoal.Balance.Equal(ledger.NewMoney(250)))
	assert.Equal(t, 1, gotGoal.MonthsAccrued)
	assert.True(t, gotGoal.CreatedClock.Equal(date(1, 0)))
}

func TestPaymentRequestMatchesRoundTrip(t *testing.T) {
	// Match lists persist in match order across updates.
	s := newStore(t)
	ctx := context.Background()

	pr := ledger.PaymentRequest{
		SessionID: sid, Description: "split",
		DueDate: date(20, 0), Amount: ledger.NewMoney(25),
		NumberOfRequests: 2, CreatedClock: date(1, 0),
	}
	require.NoError(t, s.AppendRequest(ctx, &pr))

	pr.MatchedTransactionIDs = []ledger.TransactionID{7, 3}
	pr.Filled = true
	pr.NotifiedFilled = true
	require.NoError(t, s.UpdateRequest(ctx, pr))

	reqs, err := s.ListRequests(ctx, sid)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, []ledger.TransactionID{7, 3}, reqs[0].MatchedTransactionIDs)
	assert.True(t, reqs[0].Filled)
	assert.True(t, reqs[0].NotifiedFilled)

	pr.MatchedTransactionIDs = nil
	pr.Filled = false
	require.NoError(t, s.UpdateRequest(ctx, pr))
	reqs, err = s.ListRequests(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, reqs[0].MatchedTransactionIDs)
	assert.False(t, reqs[0].Filled)
}

func TestMessages(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	m := ledger.UserMessage{
		SessionID: sid, Type: ledger.MessageWarning,
		Text: "Balance dropped below zero: -20.00", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.AppendMessage(ctx, &m))

	msgs, err := s.ListMessages(ctx, sid)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Read)

	require.NoError(t, s.MarkMessageRead(ctx, sid, m.ID))
	got, err := s.GetMessage(ctx, sid, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.True(t, ledger.IsNotFound(s.MarkMessageRead(ctx, sid, 999)))
}

func TestSessionScoping(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSession(ctx, ledger.Session{ID: "other", CreatedAt: time.Now().UTC()}))

	tx := ledger.Transaction{SessionID: sid, Date: date(1, 12), Amount: ledger.NewMoney(10), Type: ledger.Deposit}
	require.NoError(t, s.AppendTransaction(ctx, &tx))

	_, err := s.GetTransaction(ctx, "other", tx.ID)
	assert.True(t, ledger.IsNotFound(err))

	txs, err := s.ListTransactions(ctx, "other", ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}
