/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Implements every persistence interface the ledger engine needs using
  SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  sessions                 session tokens
  transactions             the per-session ledger (ordered by date)
  categories               user-defined labels
  category_rules           auto-categorization rules, creation order
  saving_goals             goals plus accrual bookkeeping
  payment_requests         requests plus notified flags
  payment_request_matches  ordered transaction-to-request matches
  messages                 append-only advisories

ORDERING:
  Dates are stored as fixed-width UTC timestamps with nanosecond
  fractions so lexicographic ORDER BY equals chronological order; the
  numeric id breaks ties in insertion order.

CONCURRENCY:
  A sync.RWMutex serializes writers, which also provides the per-session
  mutual exclusion the engine assumes. SQLite runs in WAL mode so
  readers don't block.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go:        interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/ledger-engine/ledger"
)

// timeLayout is RFC3339 with a fixed nine-digit fraction so stored strings
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		external_iban TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category_id INTEGER,
		created_at TEXT NOT NULL
	);

	-- Hot path: ordered range scans per session
	CREATE INDEX IF NOT EXISTS idx_transactions_session_date
		ON transactions(session_id, date, id);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_categories_session
		ON categories(session_id);

	CREATE TABLE IF NOT EXISTS category_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		iban TEXT NOT NULL DEFAULT '',
		tx_type TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		apply_on_history BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_category_rules_session
		ON category_rules(session_id);

	CREATE TABLE IF NOT EXISTS saving_goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		goal TEXT NOT NULL,
		save_per_month TEXT NOT NULL,
		min_balance_required TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_clock TEXT NOT NULL,
		months_accrued INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_saving_goals_session
		ON saving_goals(session_id);

	CREATE TABLE IF NOT EXISTS payment_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		number_of_requests INTEGER NOT NULL,
		created_clock TEXT NOT NULL,
		filled BOOLEAN NOT NULL DEFAULT FALSE,
		notified_filled BOOLEAN NOT NULL DEFAULT FALSE,
		notified_overdue BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_payment_requests_session
		ON payment_requests(session_id);

	CREATE TABLE IF NOT EXISTS payment_request_matches (
		request_id INTEGER NOT NULL,
		transaction_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (request_id, transaction_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		msg_type TEXT NOT NULL,
		text TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) CreateSession(ctx context.Context, sess ledger.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		string(sess.ID), formatTime(sess.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) HasSession(ctx context.Context, id ledger.SessionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, string(id)).Scan(&count)
	return count > 0, err
}

func (s *Store) ListSessions(ctx context.Context) ([]ledger.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Session
	for rows.Next() {
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, ledger.Session{
			ID:        ledger.SessionID(id),
			CreatedAt: parseTime(createdAt),
		})
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(session_id, date, amount, tx_type, external_iban, description, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.SessionID),
		formatTime(tx.Date),
		tx.Amount.String(),
		string(tx.Type),
		tx.ExternalIBAN,
		tx.Description,
		nullCategory(tx.CategoryID),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = ledger.TransactionID(id)
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, sid ledger.SessionID, id ledger.TransactionID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, date, amount, tx_type, external_iban, description, category_id, created_at
		FROM transactions WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return ledger.Transaction{}, &ledger.NotFoundError{Kind: "transaction", ID: id}
	}
	return tx, err
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, amount = ?, tx_type = ?, external_iban = ?, description = ?, category_id = ?
		WHERE session_id = ? AND id = ?`,
		formatTime(tx.Date),
		tx.Amount.String(),
		string(tx.Type),
		tx.ExternalIBAN,
		tx.Description,
		nullCategory(tx.CategoryID),
		string(tx.SessionID),
		int64(tx.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return affectedOrNotFound(res, "transaction", tx.ID)
}

func (s *Store) DeleteTransaction(ctx context.Context, sid ledger.SessionID, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return affectedOrNotFound(res, "transaction", id)
}

func (s *Store) ListTransactions(ctx context.Context, sid ledger.SessionID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, session_id, date, amount, tx_type, external_iban, description, category_id, created_at
		FROM transactions WHERE session_id = ?`
	args := []any{string(sid)}

	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatTime(f.To))
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, int64(f.CategoryID))
	}

	query += ` ORDER BY date ASC, id ASC`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit == 0 {
			limit = -1 // SQLite treats a negative LIMIT as unbounded
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx         ledger.Transaction
		id         int64
		sessionID  string
		date       string
		amount     string
		txType     string
		categoryID sql.NullInt64
		createdAt  string
	)
	err := row.Scan(&id, &sessionID, &date, &amount, &txType,
		&tx.ExternalIBAN, &tx.Description, &categoryID, &createdAt)
	if err != nil {
		return tx, err
	}

	tx.ID = ledger.TransactionID(id)
	tx.SessionID = ledger.SessionID(sessionID)
	tx.Date = parseTime(date)
	tx.Amount = ledger.MustParseMoney(amount)
	tx.Type = ledger.TransactionType(txType)
	tx.CreatedAt = parseTime(createdAt)
	if categoryID.Valid {
		cid := ledger.CategoryID(categoryID.Int64)
		tx.CategoryID = &cid
	}
	return tx, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) AppendCategory(ctx context.Context, c *ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (session_id, name) VALUES (?, ?)`,
		string(c.SessionID), c.Name)
	if err != nil {
		return fmt.Errorf("failed to append category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = ledger.CategoryID(id)
	return nil
}

func (s *Store) GetCategory(ctx context.Context, sid ledger.SessionID, id ledger.CategoryID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Category
	var rawID int64
	var sessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, name FROM categories WHERE session_id = ? AND id = ?`,
		string(sid), int64(id)).Scan(&rawID, &sessionID, &c.Name)
	if err == sql.ErrNoRows {
		return ledger.Category{}, &ledger.NotFoundError{Kind: "category", ID: id}
	}
	if err != nil {
		return ledger.Category{}, err
	}
	c.ID = ledger.CategoryID(rawID)
	c.SessionID = ledger.SessionID(sessionID)
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE session_id = ? AND id = ?`,
		c.Name, string(c.SessionID), int64(c.ID))
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return affectedOrNotFound(res, "category", c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, sid ledger.SessionID, id ledger.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return affectedOrNotFound(res, "category", id)
}

func (s *Store) ListCategories(ctx context.Context, sid ledger.SessionID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name FROM categories WHERE session_id = ? ORDER BY id ASC`,
		string(sid))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cs []ledger.Category
	for rows.Next() {
		var c ledger.Category
		var rawID int64
		var sessionID string
		if err := rows.Scan(&rawID, &sessionID, &c.Name); err != nil {
			return nil, err
		}
		c.ID = ledger.CategoryID(rawID)
		c.SessionID = ledger.SessionID(sessionID)
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// =============================================================================
// CATEGORY RULES
// =============================================================================

func (s *Store) AppendRule(ctx context.Context, r *ledger.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO category_rules
		(session_id, description, iban, tx_type, category_id, apply_on_history)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.SessionID), r.Description, r.IBAN, string(r.Type),
		int64(r.CategoryID), r.ApplyOnHistory)
	if err != nil {
		return fmt.Errorf("failed to append category rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = ledger.RuleID(id)
	return nil
}

func (s *Store) GetRule(ctx context.Context, sid ledger.SessionID, id ledger.RuleID) (ledger.CategoryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, description, iban, tx_type, category_id, apply_on_history
		FROM category_rules WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))

	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return ledger.CategoryRule{}, &ledger.NotFoundError{Kind: "categoryRule", ID: id}
	}
	return r, err
}

func (s *Store) UpdateRule(ctx context.Context, r ledger.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE category_rules
		SET description = ?, iban = ?, tx_type = ?, category_id = ?, apply_on_history = ?
		WHERE session_id = ? AND id = ?`,
		r.Description, r.IBAN, string(r.Type), int64(r.CategoryID), r.ApplyOnHistory,
		string(r.SessionID), int64(r.ID))
	if err != nil {
		return fmt.Errorf("failed to update category rule: %w", err)
	}
	return affectedOrNotFound(res, "categoryRule", r.ID)
}

func (s *Store) DeleteRule(ctx context.Context, sid ledger.SessionID, id ledger.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM category_rules WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete category rule: %w", err)
	}
	return affectedOrNotFound(res, "categoryRule", id)
}

func (s *Store) ListRules(ctx context.Context, sid ledger.SessionID) ([]ledger.CategoryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, description, iban, tx_type, category_id, apply_on_history
		FROM category_rules WHERE session_id = ? ORDER BY id ASC`,
		string(sid))
	if err != nil {
		return nil, fmt.Errorf("failed to query category rules: %w", err)
	}
	defer rows.Close()

	var rs []ledger.CategoryRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

func scanRule(row scanner) (ledger.CategoryRule, error) {
	var (
		r          ledger.CategoryRule
		id         int64
		sessionID  string
		txType     string
		categoryID int64
	)
	err := row.Scan(&id, &sessionID, &r.Description, &r.IBAN, &txType, &categoryID, &r.ApplyOnHistory)
	if err != nil {
		return r, err
	}
	r.ID = ledger.RuleID(id)
	r.SessionID = ledger.SessionID(sessionID)
	r.Type = ledger.TransactionType(txType)
	r.CategoryID = ledger.CategoryID(categoryID)
	return r, nil
}

// =============================================================================
// SAVING GOALS
// =============================================================================

func (s *Store) AppendGoal(ctx context.Context, g *ledger.SavingGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO saving_goals
		(session_id, name, goal, save_per_month, min_balance_required, balance, created_clock, months_accrued)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(g.SessionID), g.Name,
		g.Goal.String(), g.SavePerMonth.String(),
		g.MinBalanceRequired.String(), g.Balance.String(),
		formatTime(g.CreatedClock), g.MonthsAccrued)
	if err != nil {
		return fmt.Errorf("failed to append saving goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = ledger.GoalID(id)
	return nil
}

func (s *Store) GetGoal(ctx context.Context, sid ledger.SessionID, id ledger.GoalID) (ledger.SavingGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, goal, save_per_month, min_balance_required, balance, created_clock, months_accrued
		FROM saving_goals WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))

	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return ledger.SavingGoal{}, &ledger.NotFoundError{Kind: "savingGoal", ID: id}
	}
	return g, err
}

func (s *Store) UpdateGoal(ctx context.Context, g ledger.SavingGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE saving_goals
		SET name = ?, goal = ?, save_per_month = ?, min_balance_required = ?, balance = ?, months_accrued = ?
		WHERE session_id = ? AND id = ?`,
		g.Name, g.Goal.String(), g.SavePerMonth.String(),
		g.MinBalanceRequired.String(), g.Balance.String(), g.MonthsAccrued,
		string(g.SessionID), int64(g.ID))
	if err != nil {
		return fmt.Errorf("failed to update saving goal: %w", err)
	}
	return affectedOrNotFound(res, "savingGoal", g.ID)
}

func (s *Store) DeleteGoal(ctx context.Context, sid ledger.SessionID, id ledger.GoalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saving_goals WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete saving goal: %w", err)
	}
	return affectedOrNotFound(res, "savingGoal", id)
}

func (s *Store) ListGoals(ctx context.Context, sid ledger.SessionID) ([]ledger.SavingGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name, goal, save_per_month, min_balance_required, balance, created_clock, months_accrued
		FROM saving_goals WHERE session_id = ? ORDER BY id ASC`,
		string(sid))
	if err != nil {
		return nil, fmt.Errorf("failed to query saving goals: %w", err)
	}
	defer rows.Close()

	var gs []ledger.SavingGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		gs = append(gs, g)
	}
	return gs, rows.Err()
}

func scanGoal(row scanner) (ledger.SavingGoal, error) {
	var (
		g            ledger.SavingGoal
		id           int64
		sessionID    string
		goal         string
		savePerMonth string
		minBalance   string
		balance      string
		createdClock string
	)
	err := row.Scan(&id, &sessionID, &g.Name, &goal, &savePerMonth, &minBalance,
		&balance, &createdClock, &g.MonthsAccrued)
	if err != nil {
		return g, err
	}
	g.ID = ledger.GoalID(id)
	g.SessionID = ledger.SessionID(sessionID)
	g.Goal = ledger.MustParseMoney(goal)
	g.SavePerMonth = ledger.MustParseMoney(savePerMonth)
	g.MinBalanceRequired = ledger.MustParseMoney(minBalance)
	g.Balance = ledger.MustParseMoney(balance)
	g.CreatedClock = parseTime(createdClock)
	return g, nil
}

// =============================================================================
// PAYMENT REQUESTS
// =============================================================================

func (s *Store) AppendRequest(ctx context.Context, r *ledger.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_requests
		(session_id, description, due_date, amount, number_of_requests, created_clock, filled, notified_filled, notified_overdue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.SessionID), r.Description, formatTime(r.DueDate),
		r.Amount.String(), r.NumberOfRequests, formatTime(r.CreatedClock),
		r.Filled, r.NotifiedFilled, r.NotifiedOverdue)
	if err != nil {
		return fmt.Errorf("failed to append payment request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = ledger.RequestID(id)
	return s.saveMatches(ctx, r.ID, r.MatchedTransactionIDs)
}

func (s *Store) UpdateRequest(ctx context.Context, r ledger.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET filled = ?, notified_filled = ?, notified_overdue = ?
		WHERE session_id = ? AND id = ?`,
		r.Filled, r.NotifiedFilled, r.NotifiedOverdue,
		string(r.SessionID), int64(r.ID))
	if err != nil {
		return fmt.Errorf("failed to update payment request: %w", err)
	}
	if err := affectedOrNotFound(res, "paymentRequest", r.ID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM payment_request_matches WHERE request_id = ?`, int64(r.ID)); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}
	return s.saveMatches(ctx, r.ID, r.MatchedTransactionIDs)
}

func (s *Store) saveMatches(ctx context.Context, id ledger.RequestID, matches []ledger.TransactionID) error {
	for pos, txID := range matches {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO payment_request_matches (request_id, transaction_id, position)
			VALUES (?, ?, ?)`,
			int64(id), int64(txID), pos); err != nil {
			return fmt.Errorf("failed to save match: %w", err)
		}
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, sid ledger.SessionID) ([]ledger.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, description, due_date, amount, number_of_requests, created_clock, filled, notified_filled, notified_overdue
		FROM payment_requests WHERE session_id = ? ORDER BY id ASC`,
		string(sid))
	if err != nil {
		return nil, fmt.Errorf("failed to query payment requests: %w", err)
	}
	defer rows.Close()

	var rs []ledger.PaymentRequest
	for rows.Next() {
		var (
			r            ledger.PaymentRequest
			id           int64
			sessionID    string
			dueDate      string
			amount       string
			createdClock string
		)
		if err := rows.Scan(&id, &sessionID, &r.Description, &dueDate, &amount,
			&r.NumberOfRequests, &createdClock, &r.Filled, &r.NotifiedFilled, &r.NotifiedOverdue); err != nil {
			return nil, err
		}
		r.ID = ledger.RequestID(id)
		r.SessionID = ledger.SessionID(sessionID)
		r.DueDate = parseTime(dueDate)
		r.Amount = ledger.MustParseMoney(amount)
		r.CreatedClock = parseTime(createdClock)
		rs = append(rs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rs {
		matches, err := s.loadMatches(ctx, rs[i].ID)
		if err != nil {
			return nil, err
		}
		rs[i].MatchedTransactionIDs = matches
	}
	return rs, nil
}

func (s *Store) loadMatches(ctx context.Context, id ledger.RequestID) ([]ledger.TransactionID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id FROM payment_request_matches
		WHERE request_id = ? ORDER BY position ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []ledger.TransactionID
	for rows.Next() {
		var txID int64
		if err := rows.Scan(&txID); err != nil {
			return nil, err
		}
		matches = append(matches, ledger.TransactionID(txID))
	}
	return matches, rows.Err()
}

// =============================================================================
// MESSAGES
// =============================================================================

func (s *Store) AppendMessage(ctx context.Context, m *ledger.UserMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, msg_type, text, read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(m.SessionID), string(m.Type), m.Text, m.Read, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = ledger.MessageID(id)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, sid ledger.SessionID, id ledger.MessageID) (ledger.UserMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		m         ledger.UserMessage
		rawID     int64
		sessionID string
		msgType   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, msg_type, text, read, created_at
		FROM messages WHERE session_id = ? AND id = ?`,
		string(sid), int64(id)).Scan(&rawID, &sessionID, &msgType, &m.Text, &m.Read, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.UserMessage{}, &ledger.NotFoundError{Kind: "message", ID: id}
	}
	if err != nil {
		return ledger.UserMessage{}, err
	}
	m.ID = ledger.MessageID(rawID)
	m.SessionID = ledger.SessionID(sessionID)
	m.Type = ledger.MessageType(msgType)
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, sid ledger.SessionID, id ledger.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE WHERE session_id = ? AND id = ?`,
		string(sid), int64(id))
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return affectedOrNotFound(res, "message", id)
}

func (s *Store) ListMessages(ctx context.Context, sid ledger.SessionID) ([]ledger.UserMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, msg_type, text, read, created_at
		FROM messages WHERE session_id = ? ORDER BY id ASC`,
		string(sid))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var ms []ledger.UserMessage
	for rows.Next() {
		var (
			m         ledger.UserMessage
			rawID     int64
			sessionID string
			msgType   string
			createdAt string
		)
		if err := rows.Scan(&rawID, &sessionID, &msgType, &m.Text, &m.Read, &createdAt); err != nil {
			return nil, err
		}
		m.ID = ledger.MessageID(rawID)
		m.SessionID = ledger.SessionID(sessionID)
		m.Type = ledger.MessageType(msgType)
		m.CreatedAt = parseTime(createdAt)
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullCategory(id *ledger.CategoryID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func affectedOrNotFound(res sql.Result, kind string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
