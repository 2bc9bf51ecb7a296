/*
Package pipeline orchestrates the fixed mutation pipeline of the ledger
service.

CONTROL FLOW:
  Every transaction mutation runs the analytics stages in a fixed order,
  because each downstream stage depends on the category/balance state the
  previous one produced:

    category rule matching -> saving-goal accrual -> payment-request
    matching -> advisory message generation

  The stages never call each other; the pipeline hands each one the
  current snapshot. Reads of saving goals and payment requests run the
  same accrual/rematch stages lazily (Touch), so read-your-writes holds
  for any read issued after a mutation's response returned.

CONCURRENCY:
  No locking here. Concurrent mutations to the same session serialize at
  the store boundary; each pipeline run treats the snapshot it loaded as
  its input.
*/
package pipeline

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/advice"
	"github.com/warp/ledger-engine/categorize"
	"github.com/warp/ledger-engine/goals"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/payreq"
)

// Pipeline wires the analytics components over a shared store.
type Pipeline struct {
	Store    ledger.Store
	Calc     *ledger.Calculator
	Bucketer *ledger.Bucketer
	Rules    *categorize.Matcher
	Goals    *goals.Tracker
	Requests *payreq.Matcher
	Advice   *advice.Generator
}

func New(store ledger.Store, cfg advice.Config) *Pipeline {
	return &Pipeline{
		Store:    store,
		Calc:     ledger.NewCalculator(store),
		Bucketer: ledger.NewBucketer(store),
		Rules:    categorize.NewMatcher(store),
		Goals:    goals.NewTracker(store),
		Requests: payreq.NewMatcher(store),
		Advice:   advice.NewGenerator(store, cfg),
	}
}

// =============================================================================
// TRANSACTION MUTATIONS
// =============================================================================

// CreateTransaction validates and stores a new transaction, applies category
// rules to it, then runs the downstream stages.
func (p *Pipeline) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return ledger.Transaction{}, err
	}
	pre, err := p.snapshot(ctx, tx.SessionID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx.Date = tx.Date.UTC()
	tx.CreatedAt = time.Now().UTC()
	if tx.CategoryID == nil {
		if tx, err = p.Rules.ApplyToTransaction(ctx, tx); err != nil {
			return ledger.Transaction{}, err
		}
	} else if _, err := p.Store.GetCategory(ctx, tx.SessionID, *tx.CategoryID); err != nil {
		return ledger.Transaction{}, err
	}

	if err := p.Store.AppendTransaction(ctx, &tx); err != nil {
		return ledger.Transaction{}, err
	}
	if err := p.refresh(ctx, tx.SessionID, pre); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction replaces a transaction (full PUT semantics) and reruns
// the downstream stages.
func (p *Pipeline) UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return ledger.Transaction{}, err
	}
	current, err := p.Store.GetTransaction(ctx, tx.SessionID, tx.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	pre, err := p.snapshot(ctx, tx.SessionID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx.Date = tx.Date.UTC()
	tx.CreatedAt = current.CreatedAt
	if tx.CategoryID == nil {
		tx.CategoryID = current.CategoryID
	}
	if err := p.Store.UpdateTransaction(ctx, tx); err != nil {
		return ledger.Transaction{}, err
	}
	if err := p.refresh(ctx, tx.SessionID, pre); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// DeleteTransaction removes a transaction and reruns the downstream stages,
// un-matching it from any payment request it filled.
func (p *Pipeline) DeleteTransaction(ctx context.Context, sid ledger.SessionID, id ledger.TransactionID) error {
	pre, err := p.snapshot(ctx, sid)
	if err != nil {
		return err
	}
	if err := p.Store.DeleteTransaction(ctx, sid, id); err != nil {
		return err
	}
	return p.refresh(ctx, sid, pre)
}

// AssignCategory patches the category of a transaction. Fails with NotFound
// when the category is unknown or owned by another session.
func (p *Pipeline) AssignCategory(ctx context.Context, sid ledger.SessionID, id ledger.TransactionID, cat ledger.CategoryID) (ledger.Transaction, error) {
	tx, err := p.Store.GetTransaction(ctx, sid, id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := p.Store.GetCategory(ctx, sid, cat); err != nil {
		return ledger.Transaction{}, err
	}
	tx.CategoryID = &cat
	if err := p.Store.UpdateTransaction(ctx, tx); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// =============================================================================
// CATEGORY RULES
// =============================================================================

// CreateRule validates and stores a rule, applying it to the full history
// when requested.
func (p *Pipeline) CreateRule(ctx context.Context, r ledger.CategoryRule) (ledger.CategoryRule, error) {
	if err := p.Rules.ValidateRule(ctx, r); err != nil {
		return ledger.CategoryRule{}, err
	}
	if err := p.Store.AppendRule(ctx, &r); err != nil {
		return ledger.CategoryRule{}, err
	}
	if r.ApplyOnHistory {
		if err := p.Rules.ApplyToHistory(ctx, r); err != nil {
			return ledger.CategoryRule{}, err
		}
	}
	return r, nil
}

// UpdateRule replaces a rule, re-applying it to history when requested.
func (p *Pipeline) UpdateRule(ctx context.Context, r ledger.CategoryRule) (ledger.CategoryRule, error) {
	if _, err := p.Store.GetRule(ctx, r.SessionID, r.ID); err != nil {
		return ledger.CategoryRule{}, err
	}
	if err := p.Rules.ValidateRule(ctx, r); err != nil {
		return ledger.CategoryRule{}, err
	}
	if err := p.Store.UpdateRule(ctx, r); err != nil {
		return ledger.CategoryRule{}, err
	}
	if r.ApplyOnHistory {
		if err := p.Rules.ApplyToHistory(ctx, r); err != nil {
			return ledger.CategoryRule{}, err
		}
	}
	return r, nil
}

// =============================================================================
// SAVING GOALS & PAYMENT REQUESTS
// =============================================================================

// CreateGoal stores a goal anchored at the current session clock.
func (p *Pipeline) CreateGoal(ctx context.Context, g ledger.SavingGoal) (ledger.SavingGoal, error) {
	clock, err := p.Calc.Clock(ctx, g.SessionID)
	if err != nil {
		return ledger.SavingGoal{}, err
	}
	g.CreatedClock = clock
	g.Balance = ledger.ZeroMoney()
	g.MonthsAccrued = 0
	if err := p.Store.AppendGoal(ctx, &g); err != nil {
		return ledger.SavingGoal{}, err
	}
	return g, nil
}

// ReadGoals accrues lazily, then returns the goals in creation order.
func (p *Pipeline) ReadGoals(ctx context.Context, sid ledger.SessionID) ([]ledger.SavingGoal, error) {
	if err := p.Touch(ctx, sid); err != nil {
		return nil, err
	}
	return p.Store.ListGoals(ctx, sid)
}

// CreateRequest stores a payment request anchored at the current session
// clock and immediately matches existing deposits against it.
func (p *Pipeline) CreateRequest(ctx context.Context, r ledger.PaymentRequest) (ledger.PaymentRequest, error) {
	clock, err := p.Calc.Clock(ctx, r.SessionID)
	if err != nil {
		return ledger.PaymentRequest{}, err
	}
	r.CreatedClock = clock
	if err := p.Store.AppendRequest(ctx, &r); err != nil {
		return ledger.PaymentRequest{}, err
	}
	reqs, err := p.Requests.Rematch(ctx, r.SessionID)
	if err != nil {
		return ledger.PaymentRequest{}, err
	}
	for _, cur := range reqs {
		if cur.ID == r.ID {
			r = cur
		}
	}
	return r, nil
}

// ReadRequests rematches lazily, then returns the requests in creation order.
func (p *Pipeline) ReadRequests(ctx context.Context, sid ledger.SessionID) ([]ledger.PaymentRequest, error) {
	if err := p.Touch(ctx, sid); err != nil {
		return nil, err
	}
	return p.Store.ListRequests(ctx, sid)
}

// =============================================================================
// PIPELINE CORE
// =============================================================================

// Touch runs the accrual, rematch, and message stages against the current
// snapshot without a balance change. Idempotent.
func (p *Pipeline) Touch(ctx context.Context, sid ledger.SessionID) error {
	pre, err := p.snapshot(ctx, sid)
	if err != nil {
		return err
	}
	return p.refresh(ctx, sid, pre)
}

// refresh is the downstream half of the pipeline: goal accrual, payment
// request matching, and message generation, in that order. pre is the
// transaction snapshot taken before the mutation (equal to the current one
// for reads).
func (p *Pipeline) refresh(ctx context.Context, sid ledger.SessionID, pre []ledger.Transaction) error {
	post, err := p.Store.ListTransactions(ctx, sid, ledger.TransactionFilter{})
	if err != nil {
		return err
	}
	clock := ledger.ClockOf(post)

	contributions, err := p.Goals.Accrue(ctx, sid)
	if err != nil {
		return err
	}
	reqs, err := p.Requests.Rematch(ctx, sid)
	if err != nil {
		return err
	}

	return p.Advice.Generate(ctx, advice.Event{
		SessionID:     sid,
		Clock:         clock,
		BalanceBefore: ledger.SumAsOf(pre, clock),
		BalanceAfter:  ledger.SumAsOf(post, clock),
		Requests:      reqs,
		Contributions: contributions,
	})
}

func (p *Pipeline) snapshot(ctx context.Context, sid ledger.SessionID) ([]ledger.Transaction, error) {
	ok, err := p.Store.HasSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "session", ID: sid}
	}
	return p.Store.ListTransactions(ctx, sid, ledger.TransactionFilter{})
}

func validateTransaction(tx ledger.Transaction) error {
	if tx.Type != ledger.Deposit && tx.Type != ledger.Withdrawal {
		return &ledger.InvalidParameterError{Param: "type", Value: string(tx.Type)}
	}
	if tx.Amount.IsNegative() || tx.Amount.IsZero() {
		return &ledger.InvalidParameterError{Param: "amount", Value: tx.Amount.String()}
	}
	if tx.Date.IsZero() {
		return &ledger.InvalidParameterError{Param: "date", Value: ""}
	}
	return nil
}
