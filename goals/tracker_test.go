package goals_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/ledger-engine/goals"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

const sid = ledger.SessionID("goal-session")

func date(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func deposit(at time.Time, amount float64) ledger.Transaction {
	return ledger.Transaction{SessionID: sid, Date: at, Amount: ledger.NewMoney(amount), Type: ledger.Deposit}
}

func goal(created time.Time, target, save, minBalance float64) ledger.SavingGoal {
	return ledger.SavingGoal{
		SessionID:          sid,
		Goal:               ledger.NewMoney(target),
		SavePerMonth:       ledger.NewMoney(save),
		MinBalanceRequired: ledger.NewMoney(minBalance),
		Balance:            ledger.ZeroMoney(),
		CreatedClock:       created,
	}
}

func assertMoney(t *testing.T, want float64, got ledger.Money, what string) {
	t.Helper()
	if !got.Equal(ledger.NewMoney(want)) {
		t.Fatalf("%s: expected %.2f, got %s", what, want, got)
	}
}

// =============================================================================
// SNAPSHOT ACCRUAL
// =============================================================================

func TestAccrueSnapshot_OneContributionPerWholeMonth(t *testing.T) {
	// GIVEN: A goal created in January and a clock three months later
	// WHEN: Accruing
	// THEN: Three monthly contributions land at once

	gs := []ledger.SavingGoal{goal(date(time.January, 10), 1000, 50, 0)}
	txs := []ledger.Transaction{deposit(date(time.April, 10), 500)}

	contributions := goals.AccrueSnapshot(gs, txs)

	assertMoney(t, 150, gs[0].Balance, "goal balance")
	if gs[0].MonthsAccrued != 3 {
		t.Fatalf("expected 3 months accrued, got %d", gs[0].MonthsAccrued)
	}
	if len(contributions) != 1 {
		t.Fatalf("expected one contribution record, got %d", len(contributions))
	}
	assertMoney(t, 150, contributions[0].Amount, "contribution amount")
}

func TestAccrueSnapshot_NoWholeMonthNoContribution(t *testing.T) {
	gs := []ledger.SavingGoal{goal(date(time.January, 10), 1000, 50, 0)}
	txs := []ledger.Transaction{deposit(date(time.February, 9), 500)}

	if contributions := goals.AccrueSnapshot(gs, txs); contributions != nil {
		t.Fatalf("expected no contributions before a whole month elapsed, got %v", contributions)
	}
	assertMoney(t, 0, gs[0].Balance, "goal balance")
}

func TestAccrueSnapshot_SurplusCapsContribution(t *testing.T) {
	// GIVEN: A balance barely above the minimum required
	// WHEN: Accruing a month
	// THEN: The contribution is the surplus, not the full savePerMonth

	gs := []ledger.SavingGoal{goal(date(time.January, 1), 1000, 100, 80)}
	txs := []ledger.Transaction{deposit(date(time.February, 1), 110)}

	goals.AccrueSnapshot(gs, txs)

	// surplus = 110 - 80 = 30
	assertMoney(t, 30, gs[0].Balance, "goal balance")
}

func TestAccrueSnapshot_NegativeSurplusGrowsNothing(t *testing.T) {
	gs := []ledger.SavingGoal{goal(date(time.January, 1), 1000, 100, 500)}
	txs := []ledger.Transaction{deposit(date(time.March, 1), 200)}

	contributions := goals.AccrueSnapshot(gs, txs)

	assertMoney(t, 0, gs[0].Balance, "goal balance")
	if len(contributions) != 0 {
		t.Fatalf("expected no contributions, got %d", len(contributions))
	}
	// Months still advance so the shortfall is not retried later.
	if gs[0].MonthsAccrued != 2 {
		t.Fatalf("expected 2 months accrued, got %d", gs[0].MonthsAccrued)
	}
}

func TestAccrueSnapshot_StopsAtGoalAmount(t *testing.T) {
	gs := []ledger.SavingGoal{goal(date(time.January, 1), 120, 50, 0)}
	txs := []ledger.Transaction{deposit(date(time.June, 1), 5000)}

	goals.AccrueSnapshot(gs, txs)

	assertMoney(t, 120, gs[0].Balance, "goal balance")
	if !gs[0].Reached() {
		t.Fatal("expected goal to be reached")
	}
}

func TestAccrueSnapshot_EarlierGoalsCommitFirst(t *testing.T) {
	// GIVEN: Two goals competing for a surplus that covers only the first
	// WHEN: Accruing one month
	// THEN: Creation order decides who gets funded

	gs := []ledger.SavingGoal{
		goal(date(time.January, 1), 1000, 100, 0),
		goal(date(time.January, 1), 1000, 100, 0),
	}
	txs := []ledger.Transaction{deposit(date(time.February, 1), 130)}

	goals.AccrueSnapshot(gs, txs)

	assertMoney(t, 100, gs[0].Balance, "first goal")
	// surplus left for the second: 130 - 100 = 30
	assertMoney(t, 30, gs[1].Balance, "second goal")
}

func TestAccrueSnapshot_OwnBalanceReducesSurplus(t *testing.T) {
	// A goal's saved balance stays committed; it cannot be re-spent on itself.
	gs := []ledger.SavingGoal{goal(date(time.January, 1), 1000, 100, 0)}
	gs[0].Balance = ledger.NewMoney(150)
	gs[0].MonthsAccrued = 2

	txs := []ledger.Transaction{deposit(date(time.April, 1), 200)}

	goals.AccrueSnapshot(gs, txs)

	// surplus = 200 - 150 = 50 for the single pending month
	assertMoney(t, 200, gs[0].Balance, "goal balance")
}

func TestAccrueSnapshot_Idempotent(t *testing.T) {
	gs := []ledger.SavingGoal{goal(date(time.January, 1), 1000, 50, 0)}
	txs := []ledger.Transaction{deposit(date(time.March, 1), 500)}

	goals.AccrueSnapshot(gs, txs)
	first := gs[0].Balance

	if again := goals.AccrueSnapshot(gs, txs); again != nil {
		t.Fatalf("expected second pass at the same clock to contribute nothing, got %v", again)
	}
	if !gs[0].Balance.Equal(first) {
		t.Fatalf("expected balance unchanged, got %s", gs[0].Balance)
	}
}

func TestAccrueSnapshot_GoalCreatedOnEmptySession(t *testing.T) {
	// GIVEN: A goal created before any transaction existed
	// WHEN: History appears
	// THEN: Months count from the first transaction date

	gs := []ledger.SavingGoal{goal(time.Time{}, 1000, 50, 0)}
	txs := []ledger.Transaction{
		deposit(date(time.February, 1), 500),
		deposit(date(time.April, 1), 10),
	}

	goals.AccrueSnapshot(gs, txs)

	assertMoney(t, 100, gs[0].Balance, "goal balance")
}

func TestAccrueSnapshot_EmptyLedgerDoesNothing(t *testing.T) {
	gs := []ledger.SavingGoal{goal(date(time.January, 1), 1000, 50, 0)}

	if contributions := goals.AccrueSnapshot(gs, nil); contributions != nil {
		t.Fatalf("expected nothing without transactions, got %v", contributions)
	}
}

// =============================================================================
// STORE-BACKED TRACKER
// =============================================================================

func TestTracker_PersistsChangedGoals(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	if err := m.CreateSession(ctx, ledger.Session{ID: sid, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	g := goal(date(time.January, 1), 1000, 50, 0)
	if err := m.AppendGoal(ctx, &g); err != nil {
		t.Fatalf("append goal: %v", err)
	}
	tx := deposit(date(time.March, 1), 500)
	if err := m.AppendTransaction(ctx, &tx); err != nil {
		t.Fatalf("append transaction: %v", err)
	}

	tracker := goals.NewTracker(m)
	contributions, err := tracker.Accrue(ctx, sid)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if len(contributions) != 1 {
		t.Fatalf("expected one contribution, got %d", len(contributions))
	}

	stored, err := m.GetGoal(ctx, sid, g.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	assertMoney(t, 100, stored.Balance, "persisted balance")
	if stored.MonthsAccrued != 2 {
		t.Fatalf("expected 2 months persisted, got %d", stored.MonthsAccrued)
	}

	// Second pass at the same clock changes nothing.
	again, err := tracker.Accrue(ctx, sid)
	if err != nil {
		t.Fatalf("accrue again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected idempotent second pass, got %d contributions", len(again))
	}
}
