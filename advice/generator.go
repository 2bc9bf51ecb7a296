/*
Package advice derives info/warning messages from ledger state transitions.

RULE MODEL:
  The generator holds an ordered list of predicate+action records and
  evaluates them by explicit iteration after every ledger mutation. Each
  rule produces at most one message per triggering event, so a condition
  that merely persists does not spam the session:

    1. balance crossed below zero            -> warning
    2. balance crossed above the configured
       high threshold                        -> info
    3. payment request became filled         -> info
    4. payment request unfilled past due     -> warning
    5. saving goal received a contribution   -> info

  Balance crossings compare the pre- and post-mutation balance at the
  session clock. Request transitions are deduplicated with notified
  flags on the request record; goal contributions are reported by the
  accrual pass itself.

  Messages are append-only and survive the triggering condition; marking
  one as read is the only mutation.
*/
package advice

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/ledger-engine/goals"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/payreq"
)

// Config tunes the generator.
type Config struct {
	// HighBalanceThreshold triggers the "balance exceeds high threshold"
	// info message when crossed from below.
	HighBalanceThreshold ledger.Money
}

// DefaultConfig mirrors the server defaults.
func DefaultConfig() Config {
	return Config{HighBalanceThreshold: ledger.NewMoney(300)}
}

// Event carries the post-mutation state the rules evaluate.
type Event struct {
	SessionID     ledger.SessionID
	Clock         time.Time
	BalanceBefore ledger.Money
	BalanceAfter  ledger.Money

	// Requests is the post-rematch request list. Rules flip the notified
	// flags in place; the generator persists requests whose flags changed.
	Requests []ledger.PaymentRequest

	Contributions []goals.Contribution
}

type draft struct {
	Type ledger.MessageType
	Text string
}

// A rule inspects the event and returns zero or more message drafts.
type rule struct {
	name string
	eval func(cfg Config, ev *Event) []draft
}

// Fixed priority order. Evaluated top to bottom on every mutation.
var rules = []rule{
	{name: "balance_below_zero", eval: balanceBelowZero},
	{name: "balance_above_high", eval: balanceAboveHigh},
	{name: "request_filled", eval: requestFilled},
	{name: "request_overdue", eval: requestOverdue},
	{name: "goal_contribution", eval: goalContribution},
}

func balanceBelowZero(_ Config, ev *Event) []draft {
	if ev.BalanceAfter.IsNegative() && !ev.BalanceBefore.IsNegative() {
		return []draft{{
			Type: ledger.MessageWarning,
			Text: fmt.Sprintf("Balance dropped below zero: %s", ev.BalanceAfter),
		}}
	}
	return nil
}

func balanceAboveHigh(cfg Config, ev *Event) []draft {
	if ev.BalanceAfter.GreaterThan(cfg.HighBalanceThreshold) &&
		!ev.BalanceBefore.GreaterThan(cfg.HighBalanceThreshold) {
		return []draft{{
			Type: ledger.MessageInfo,
			Text: fmt.Sprintf("Balance reached a new high: %s", ev.BalanceAfter),
		}}
	}
	return nil
}

func requestFilled(_ Config, ev *Event) []draft {
	var ds []draft
	for i := range ev.Requests {
		r := &ev.Requests[i]
		if r.Filled && !r.NotifiedFilled {
			r.NotifiedFilled = true
			ds = append(ds, draft{
				Type: ledger.MessageInfo,
				Text: fmt.Sprintf("Payment request %q has been filled", r.Description),
			})
		}
	}
	return ds
}

func requestOverdue(_ Config, ev *Event) []draft {
	var ds []draft
	for i := range ev.Requests {
		r := &ev.Requests[i]
		if payreq.Overdue(*r, ev.Clock) && !r.NotifiedOverdue {
			r.NotifiedOverdue = true
			ds = append(ds, draft{
				Type: ledger.MessageWarning,
				Text: fmt.Sprintf("Payment request %q was not filled before its due date", r.Description),
			})
		}
	}
	return ds
}

func goalContribution(_ Config, ev *Event) []draft {
	var ds []draft
	for _, c := range ev.Contributions {
		ds = append(ds, draft{
			Type: ledger.MessageInfo,
			Text: fmt.Sprintf("Saving goal %q received a contribution of %s", c.Goal.Name, c.Amount),
		})
	}
	return ds
}

// =============================================================================
// GENERATOR - Store-backed evaluation
// =============================================================================

// Generator evaluates the rule list and persists the resulting messages plus
// any notified-flag changes on payment requests. One atomic pass per
// mutation; no partial state is visible across the pass.
type Generator struct {
	Store  ledger.Store
	Config Config
}

func NewGenerator(store ledger.Store, cfg Config) *Generator {
	return &Generator{Store: store, Config: cfg}
}

// Generate runs all rules against the event in priority order.
func (g *Generator) Generate(ctx context.Context, ev Event) error {
	flagsBefore := make(map[ledger.RequestID][2]bool, len(ev.Requests))
	for _, r := range ev.Requests {
		flagsBefore[r.ID] = [2]bool{r.NotifiedFilled, r.NotifiedOverdue}
	}

	var drafts []draft
	for _, rl := range rules {
		drafts = append(drafts, rl.eval(g.Config, &ev)...)
	}

	for _, r := range ev.Requests {
		if before := flagsBefore[r.ID]; before[0] != r.NotifiedFilled || before[1] != r.NotifiedOverdue {
			if err := g.Store.UpdateRequest(ctx, r); err != nil {
				return err
			}
		}
	}

	for _, d := range drafts {
		m := ledger.UserMessage{
			SessionID: ev.SessionID,
			Type:      d.Type,
			Text:      d.Text,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.Store.AppendMessage(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}
