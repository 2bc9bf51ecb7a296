/*
handlers.go - HTTP API handlers for the ledger analytics engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the analytics pipeline.

ENDPOINTS:
  Sessions:
    POST   /api/v1/sessions                          Create session token

  Transactions:
    GET    /api/v1/transactions                      List (offset/limit/category)
    POST   /api/v1/transactions                      Create transaction
    GET    /api/v1/transactions/{id}                 Get transaction
    PUT    /api/v1/transactions/{id}                 Replace transaction
    DELETE /api/v1/transactions/{id}                 Delete transaction
    PATCH  /api/v1/transactions/{id}/category        Assign category

  Categories:
    GET/POST /api/v1/categories, GET/PUT/DELETE /api/v1/categories/{id}

  Category rules:
    GET/POST /api/v1/categoryRules, GET/PUT/DELETE /api/v1/categoryRules/{id}

  Balance:
    GET    /api/v1/balance/history                   OHLCV buckets

  Saving goals:
    GET/POST /api/v1/savingGoals, DELETE /api/v1/savingGoals/{id}

  Payment requests:
    GET/POST /api/v1/paymentRequests

  Messages:
    GET    /api/v1/messages                          List messages
    PUT    /api/v1/messages/{id}                     Mark message read

REQUEST FLOW:
  1. Session middleware resolves X-session-ID (401 on failure)
  2. Parse and validate input
  3. Call the pipeline / store
  4. Serialize response
  5. Map domain errors onto status codes

ERROR HANDLING:
  Domain errors map onto HTTP status:
  - 401: missing or unknown session token
  - 404: unknown entity id
  - 405: invalid parameter or request body
  - 409: cross-session entity reference
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - pipeline/pipeline.go: Mutation orchestration
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/pipeline"
)

// defaultListLimit bounds transaction listings when the client omits limit.
const defaultListLimit = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Pipeline *pipeline.Pipeline
}

// NewHandler creates a new handler around the given pipeline.
func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{
		Store:    p.Store,
		Pipeline: p,
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// CreateSession mints a fresh session token. The only endpoint that does not
// require one.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := ledger.Session{
		ID:        ledger.SessionID(uuid.NewString()),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateSession(r.Context(), sess); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionDTO{ID: string(sess.ID)})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns the session's transactions ordered by date.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	filter := ledger.TransactionFilter{Limit: defaultListLimit}
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeDomainError(w, &ledger.InvalidParameterError{Param: "offset", Value: v})
			return
		}
		filter.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeDomainError(w, &ledger.InvalidParameterError{Param: "limit", Value: v})
			return
		}
		filter.Limit = n
	}
	if name := q.Get("category"); name != "" {
		cat, ok, err := h.categoryByName(ctx, sid, name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusOK, []TransactionDTO{})
			return
		}
		filter.CategoryID = cat.ID
	}

	txs, err := h.Store.ListTransactions(ctx, sid, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos, err := h.toTransactionDTOs(ctx, sid, txs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction appends a transaction and re-runs the analytics pipeline.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	req, err := decodeBody[TransactionRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx, err := transactionFromRequest(sid, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.Pipeline.CreateTransaction(ctx, tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.toTransactionDTO(ctx, sid, created)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	id, err := pathID(r, "transactionId", "transaction")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := h.Store.GetTransaction(ctx, sid, ledger.TransactionID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.toTransactionDTO(ctx, sid, tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateTransaction replaces a transaction and re-runs the pipeline.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	id, err := pathID(r, "transactionId", "transaction")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req, err := decodeBody[TransactionRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx, err := transactionFromRequest(sid, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx.ID = ledger.TransactionID(id)

	updated, err := h.Pipeline.UpdateTransaction(ctx, tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.toTransactionDTO(ctx, sid, updated)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteTransaction removes a transaction and re-runs the pipeline.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	id, err := pathID(r, "transactionId", "transaction")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Pipeline.DeleteTransaction(ctx, sid, ledger.TransactionID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignCategory sets the category of a transaction.
// PATCH /api/v1/transactions/{transactionId}/category
func (h *Handler) AssignCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	id, err := pathID(r, "transactionId", "transaction")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req, err := decodeBody[AssignCategoryRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := h.Pipeline.AssignCategory(ctx, sid, ledger.TransactionID(id), ledger.CategoryID(req.CategoryID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.toTransactionDTO(ctx, sid, tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cats, err := h.Store.ListCategories(ctx, sessionID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = CategoryDTO{ID: int64(c.ID), Name: c.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBody[CategoryRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Name == "" {
		writeDomainError(w, &ledger.InvalidParameterError{Param: "name", Value: ""})
		return
	}

	c := ledger.Category{SessionID: sessionID(ctx), Name: req.Name}
	if err := h.Store.AppendCategory(ctx, &c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryDTO{ID: int64(c.ID), Name: c.Name})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryId", "category")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.Store.GetCategory(ctx, sessionID(ctx), ledger.CategoryID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryDTO{ID: int64(c.ID), Name: c.Name})
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryId", "category")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req, err := decodeBody[CategoryRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Name == "" {
		writeDomainError(w, &ledger.InvalidParameterError{Param: "name", Value: ""})
		return
	}

	c := ledger.Category{ID: ledger.CategoryID(id), SessionID: sessionID(ctx), Name: req.Name}
	if err := h.Store.UpdateCategory(ctx, c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryDTO{ID: int64(c.ID), Name: c.Name})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryId", "category")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.DeleteCategory(ctx, sessionID(ctx), ledger.CategoryID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY RULE HANDLERS
// =============================================================================

func (h *Handler) ListCategoryRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rules, err := h.Store.ListRules(ctx, sessionID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CategoryRuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategoryRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBody[CategoryRuleRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rule, err := ruleFromRequest(sessionID(ctx), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.Pipeline.CreateRule(ctx, rule)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(created))
}

func (h *Handler) GetCategoryRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryRuleId", "categoryRule")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rule, err := h.Store.GetRule(ctx, sessionID(ctx), ledger.RuleID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

func (h *Handler) UpdateCategoryRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryRuleId", "categoryRule")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req, err := decodeBody[CategoryRuleRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rule, err := ruleFromRequest(sessionID(ctx), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rule.ID = ledger.RuleID(id)

	updated, err := h.Pipeline.UpdateRule(ctx, rule)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(updated))
}

func (h *Handler) DeleteCategoryRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "categoryRuleId", "categoryRule")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.DeleteRule(ctx, sessionID(ctx), ledger.RuleID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BALANCE HISTORY
// =============================================================================

// BalanceHistory returns OHLCV buckets for the session's balance.
// GET /api/v1/balance/history?interval=week&intervals=24
func (h *Handler) BalanceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	q := r.URL.Query()

	iv, err := ledger.ParseInterval(q.Get("interval"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	count := ledger.DefaultIntervalCount
	if v := q.Get("intervals"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeDomainError(w, &ledger.InvalidParameterError{Param: "intervals", Value: v})
			return
		}
		count = n
	}

	buckets, err := h.Pipeline.Bucketer.History(ctx, sid, iv, count, time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]CandlestickDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = CandlestickDTO{
			Open:      b.Open.Float64(),
			Close:     b.Close.Float64(),
			High:      b.High.Float64(),
			Low:       b.Low.Float64(),
			Volume:    b.Volume.Float64(),
			Timestamp: b.Start.Unix(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SAVING GOAL HANDLERS
// =============================================================================

func (h *Handler) ListSavingGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gs, err := h.Pipeline.ReadGoals(ctx, sessionID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]SavingGoalDTO, len(gs))
	for i, g := range gs {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSavingGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBody[SavingGoalRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Name == "" {
		writeDomainError(w, &ledger.InvalidParameterError{Param: "name", Value: ""})
		return
	}
	if req.Goal <= 0 || req.SavePerMonth <= 0 || req.MinBalanceRequired < 0 {
		writeDomainError(w, &ledger.InvalidParameterError{Param: "savingGoal", Value: "non-positive amount"})
		return
	}

	g := ledger.SavingGoal{
		SessionID:          sessionID(ctx),
		Name:               req.Name,
		Goal:               ledger.NewMoney(req.Goal),
		SavePerMonth:       ledger.NewMoney(req.SavePerMonth),
		MinBalanceRequired: ledger.NewMoney(req.MinBalanceRequired),
	}
	created, err := h.Pipeline.CreateGoal(ctx, g)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(created))
}

func (h *Handler) DeleteSavingGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	id, err := pathID(r, "savingGoalId", "savingGoal")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.DeleteGoal(ctx, sid, ledger.GoalID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT REQUEST HANDLERS
// =============================================================================

func (h *Handler) ListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	reqs, err := h.Pipeline.ReadRequests(ctx, sid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PaymentRequestDTO, len(reqs))
	for i, pr := range reqs {
		dto, err := h.toPaymentRequestDTO(ctx, sid, pr)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	req, err := decodeBody[PaymentRequestRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Amount <= 0 || req.NumberOfRequests < 1 {
		writeDomainError(w, &ledger.InvalidParameterError{Param: "paymentRequest", Value: "non-positive amount or count"})
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	pr := ledger.PaymentRequest{
		SessionID:        sid,
		Description:      req.Description,
		DueDate:          due,
		Amount:           ledger.NewMoney(req.Amount),
		NumberOfRequests: req.NumberOfRequests,
	}
	created, err := h.Pipeline.CreateRequest(ctx, pr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto, err := h.toPaymentRequestDTO(ctx, sid, created)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	// Re-run the analytics pass so time-driven advisories (overdue payment
	// requests) surface without requiring a mutation first.
	if err := h.Pipeline.Touch(ctx, sid); err != nil {
		writeDomainError(w, err)
		return
	}

	msgs, err := h.Store.ListMessages(ctx, sid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = MessageDTO{
			ID:      int64(m.ID),
			Message: m.Text,
			Date:    formatDate(m.CreatedAt),
			Read:    m.Read,
			Type:    string(m.Type),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkMessageRead marks a message as read. The endpoint responds 201, not
// 200; existing clients depend on that.
func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	id, err := pathID(r, "messageId", "message")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.MarkMessageRead(ctx, sid, ledger.MessageID(id)); err != nil {
		writeDomainError(w, err)
		return
	}
	m, err := h.Store.GetMessage(ctx, sid, ledger.MessageID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageDTO{
		ID:      int64(m.ID),
		Message: m.Text,
		Date:    formatDate(m.CreatedAt),
		Read:    m.Read,
		Type:    string(m.Type),
	})
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func transactionFromRequest(sid ledger.SessionID, req TransactionRequest) (ledger.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx := ledger.Transaction{
		SessionID:    sid,
		Date:         date,
		Amount:       ledger.NewMoney(req.Amount),
		Type:         ledger.TransactionType(req.Type),
		ExternalIBAN: req.ExternalIBAN,
		Description:  req.Description,
	}
	if req.CategoryID != nil {
		cid := ledger.CategoryID(*req.CategoryID)
		tx.CategoryID = &cid
	}
	return tx, nil
}

func ruleFromRequest(sid ledger.SessionID, req CategoryRuleRequest) (ledger.CategoryRule, error) {
	if !ledger.ValidTransactionType(req.Type) {
		return ledger.CategoryRule{}, &ledger.InvalidParameterError{Param: "type", Value: req.Type}
	}
	return ledger.CategoryRule{
		SessionID:      sid,
		Description:    req.Description,
		IBAN:           req.IBAN,
		Type:           ledger.TransactionType(req.Type),
		CategoryID:     ledger.CategoryID(req.CategoryID),
		ApplyOnHistory: req.ApplyOnHistory,
	}, nil
}

func toRuleDTO(r ledger.CategoryRule) CategoryRuleDTO {
	return CategoryRuleDTO{
		ID:             int64(r.ID),
		Description:    r.Description,
		IBAN:           r.IBAN,
		Type:           string(r.Type),
		CategoryID:     int64(r.CategoryID),
		ApplyOnHistory: r.ApplyOnHistory,
	}
}

func toGoalDTO(g ledger.SavingGoal) SavingGoalDTO {
	return SavingGoalDTO{
		ID:                 int64(g.ID),
		Name:               g.Name,
		Goal:               g.Goal.Float64(),
		SavePerMonth:       g.SavePerMonth.Float64(),
		MinBalanceRequired: g.MinBalanceRequired.Float64(),
		Balance:            g.Balance.Float64(),
	}
}

// toTransactionDTO embeds the assigned category, when any.
func (h *Handler) toTransactionDTO(ctx context.Context, sid ledger.SessionID, tx ledger.Transaction) (TransactionDTO, error) {
	dto := TransactionDTO{
		ID:           int64(tx.ID),
		Date:         formatDate(tx.Date),
		Amount:       tx.Amount.Float64(),
		ExternalIBAN: tx.ExternalIBAN,
		Type:         string(tx.Type),
		Description:  tx.Description,
	}
	if tx.CategoryID != nil {
		c, err := h.Store.GetCategory(ctx, sid, *tx.CategoryID)
		if err != nil {
			if ledger.IsNotFound(err) {
				// Category was deleted after assignment; render uncategorized.
				return dto, nil
			}
			return TransactionDTO{}, err
		}
		dto.Category = &CategoryDTO{ID: int64(c.ID), Name: c.Name}
	}
	return dto, nil
}

func (h *Handler) toTransactionDTOs(ctx context.Context, sid ledger.SessionID, txs []ledger.Transaction) ([]TransactionDTO, error) {
	// Resolve categories once per listing rather than per transaction.
	cats, err := h.Store.ListCategories(ctx, sid)
	if err != nil {
		return nil, err
	}
	byID := make(map[ledger.CategoryID]ledger.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dto := TransactionDTO{
			ID:           int64(tx.ID),
			Date:         formatDate(tx.Date),
			Amount:       tx.Amount.Float64(),
			ExternalIBAN: tx.ExternalIBAN,
			Type:         string(tx.Type),
			Description:  tx.Description,
		}
		if tx.CategoryID != nil {
			if c, ok := byID[*tx.CategoryID]; ok {
				dto.Category = &CategoryDTO{ID: int64(c.ID), Name: c.Name}
			}
		}
		dtos[i] = dto
	}
	return dtos, nil
}

func (h *Handler) toPaymentRequestDTO(ctx context.Context, sid ledger.SessionID, pr ledger.PaymentRequest) (PaymentRequestDTO, error) {
	dto := PaymentRequestDTO{
		ID:               int64(pr.ID),
		Description:      pr.Description,
		DueDate:          formatDate(pr.DueDate),
		Amount:           pr.Amount.Float64(),
		NumberOfRequests: pr.NumberOfRequests,
		Filled:           pr.Filled,
		Transactions:     []TransactionDTO{},
	}
	for _, txID := range pr.MatchedTransactionIDs {
		tx, err := h.Store.GetTransaction(ctx, sid, txID)
		if err != nil {
			if ledger.IsNotFound(err) {
				continue
			}
			return PaymentRequestDTO{}, err
		}
		txDTO, err := h.toTransactionDTO(ctx, sid, tx)
		if err != nil {
			return PaymentRequestDTO{}, err
		}
		dto.Transactions = append(dto.Transactions, txDTO)
	}
	return dto, nil
}

func (h *Handler) categoryByName(ctx context.Context, sid ledger.SessionID, name string) (ledger.Category, bool, error) {
	cats, err := h.Store.ListCategories(ctx, sid)
	if err != nil {
		return ledger.Category{}, false, err
	}
	for _, c := range cats {
		if c.Name == name {
			return c, true, nil
		}
	}
	return ledger.Category{}, false, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// pathID parses the numeric id path parameter. Non-numeric ids map to 404:
// the resource space is numeric, so anything else cannot name an entity.
func pathID(r *http.Request, param, kind string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ledger.NotFoundError{Kind: kind, ID: raw}
	}
	return id, nil
}

func decodeBody[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, &ledger.InvalidParameterError{Param: "body", Value: err.Error()}
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error kinds onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, "Session invalid or missing", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Resource not found", err)
	case ledger.IsInvalid(err):
		writeError(w, http.StatusMethodNotAllowed, "Invalid input", err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
