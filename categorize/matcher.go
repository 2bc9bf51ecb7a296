/*
Package categorize implements rule-based auto-categorization of transactions.

MATCHING SEMANTICS:
  A rule matches a transaction when the types are equal and the rule's
  description and IBAN each either equal the transaction's field exactly
  (case-sensitive) or are empty (wildcard). No substring or pattern
  matching; equality keeps the predicate deterministic.

APPLICATION ORDER:
  New transactions are evaluated against all rules in rule-creation order
  and the LAST matching rule wins. A rule created or updated with
  applyOnHistory set is immediately applied to the full existing history
  in one pass; it does not touch transactions created afterwards (those
  are evaluated at their own creation time).
*/
package categorize

import (
	"context"

	"github.com/warp/ledger-engine/ledger"
)

// Matches reports whether the rule's predicate holds for the transaction.
func Matches(rule ledger.CategoryRule, tx ledger.Transaction) bool {
	if rule.Type != tx.Type {
		return false
	}
	if rule.Description != "" && rule.Description != tx.Description {
		return false
	}
	if rule.IBAN != "" && rule.IBAN != tx.ExternalIBAN {
		return false
	}
	return true
}

// Categorize returns the category the rule set assigns to the transaction,
// iterating in creation order with last match winning. The second return is
// false when no rule matches.
func Categorize(rules []ledger.CategoryRule, tx ledger.Transaction) (ledger.CategoryID, bool) {
	var (
		id      ledger.CategoryID
		matched bool
	)
	for _, rule := range rules {
		if Matches(rule, tx) {
			id = rule.CategoryID
			matched = true
		}
	}
	return id, matched
}

// =============================================================================
// MATCHER - Store-backed application
// =============================================================================

// Matcher applies category rules against the store.
type Matcher struct {
	Store ledger.Store
}

func NewMatcher(store ledger.Store) *Matcher {
	return &Matcher{Store: store}
}

// ValidateRule checks that the rule references a category owned by the same
// session. Fails with Conflict otherwise, NotFound when the category does not
// exist at all.
func (m *Matcher) ValidateRule(ctx context.Context, rule ledger.CategoryRule) error {
	_, err := m.Store.GetCategory(ctx, rule.SessionID, rule.CategoryID)
	if ledger.IsNotFound(err) {
		return &ledger.ConflictError{Kind: "category", ID: rule.CategoryID}
	}
	return err
}

// ApplyToHistory overwrites the category of every existing transaction the
// rule matches. One atomic pass over the session's full history; no partial
// state is visible to readers because each transaction update is final.
func (m *Matcher) ApplyToHistory(ctx context.Context, rule ledger.CategoryRule) error {
	txs, err := m.Store.ListTransactions(ctx, rule.SessionID, ledger.TransactionFilter{})
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if !Matches(rule, tx) {
			continue
		}
		id := rule.CategoryID
		tx.CategoryID = &id
		if err := m.Store.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// ApplyToTransaction evaluates all of the session's rules against a freshly
// created transaction and returns it with the winning category applied, if
// any.
func (m *Matcher) ApplyToTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	rules, err := m.Store.ListRules(ctx, tx.SessionID)
	if err != nil {
		return tx, err
	}
	if id, ok := Categorize(rules, tx); ok {
		tx.CategoryID = &id
	}
	return tx, nil
}
