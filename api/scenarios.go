/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate a fresh session with
	realistic data for testing and demos. Each scenario creates
	transactions, categories, rules, goals or payment requests that
	demonstrate specific analytics features.

AVAILABLE SCENARIOS:

	salaried-saver:  Monthly salary and spending, categories plus a goal
	overdrawn:       Spending that pushes the balance below zero
	installments:    A payment request filled by exact-amount deposits

HOW SCENARIOS WORK:
 1. Mint a fresh session (existing sessions are never touched)
 2. Seed entities through the pipeline so every analytics pass runs
 3. Return the session token for the client to continue with

USAGE VIA API:

	POST /api/v1/scenarios/load
	{"scenario_id": "salaried-saver"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h, sid)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: CreateSession and the entity handlers
  - pipeline/pipeline.go: Analytics passes the seeding exercises
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse hands back the seeded session.
type LoadScenarioResponse struct {
	SessionID string      `json:"session_id"`
	Scenario  ScenarioDTO `json:"scenario"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "salaried-saver",
		Name:        "Salaried Saver",
		Description: "Monthly salary and spending with categories, rules and a saving goal",
	},
	{
		ID:          "overdrawn",
		Name:        "Overdrawn",
		Description: "Spending that pushes the balance below zero, triggering a warning",
	},
	{
		ID:          "installments",
		Name:        "Installments",
		Description: "A payment request filled by exact-amount deposits",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds a predefined scenario into a fresh session.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[LoadScenarioRequest](r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var scenario ScenarioDTO
	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			scenario = s
			break
		}
	}
	if scenario.ID == "" {
		writeDomainError(w, &ledger.NotFoundError{Kind: "scenario", ID: req.ScenarioID})
		return
	}

	ctx := r.Context()
	sid := ledger.SessionID(uuid.NewString())
	if err := h.Store.CreateSession(ctx, ledger.Session{ID: sid, CreatedAt: time.Now().UTC()}); err != nil {
		writeDomainError(w, err)
		return
	}

	switch scenario.ID {
	case "salaried-saver":
		err = h.loadSalariedSaverScenario(ctx, sid)
	case "overdrawn":
		err = h.loadOverdrawnScenario(ctx, sid)
	case "installments":
		err = h.loadInstallmentsScenario(ctx, sid)
	}
	if err != nil {
		writeDomainError(w, fmt.Errorf("failed to load scenario %s: %w", scenario.ID, err))
		return
	}

	writeJSON(w, http.StatusCreated, LoadScenarioResponse{
		SessionID: string(sid),
		Scenario:  scenario,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadSalariedSaverScenario seeds six months of salary deposits and recurring
// spending, categorized via rules, plus a vacation saving goal.
func (h *Handler) loadSalariedSaverScenario(ctx context.Context, sid ledger.SessionID) error {
	salary := ledger.Category{SessionID: sid, Name: "Salary"}
	groceries := ledger.Category{SessionID: sid, Name: "Groceries"}
	housing := ledger.Category{SessionID: sid, Name: "Housing"}
	for _, c := range []*ledger.Category{&salary, &groceries, &housing} {
		if err := h.Store.AppendCategory(ctx, c); err != nil {
			return err
		}
	}

	rules := []ledger.CategoryRule{
		{SessionID: sid, IBAN: "NL39RABO0300065264", Type: ledger.Deposit, CategoryID: salary.ID},
		{SessionID: sid, Description: "Groceries", Type: ledger.Withdrawal, CategoryID: groceries.ID},
		{SessionID: sid, Description: "Rent", Type: ledger.Withdrawal, CategoryID: housing.ID},
	}
	for _, rule := range rules {
		if _, err := h.Pipeline.CreateRule(ctx, rule); err != nil {
			return err
		}
	}

	start := time.Now().UTC().AddDate(0, -6, 0)
	for month := 0; month < 6; month++ {
		base := start.AddDate(0, month, 0)
		txs := []ledger.Transaction{
			{SessionID: sid, Date: base, Amount: ledger.NewMoney(2300), Type: ledger.Deposit,
				ExternalIBAN: "NL39RABO0300065264", Description: "Salary"},
			{SessionID: sid, Date: base.AddDate(0, 0, 1), Amount: ledger.NewMoney(850), Type: ledger.Withdrawal,
				ExternalIBAN: "NL02ABNA0123456789", Description: "Rent"},
			{SessionID: sid, Date: base.AddDate(0, 0, 7), Amount: ledger.NewMoney(120.50), Type: ledger.Withdrawal,
				ExternalIBAN: "NL18INGB0001234567", Description: "Groceries"},
			{SessionID: sid, Date: base.AddDate(0, 0, 21), Amount: ledger.NewMoney(134.25), Type: ledger.Withdrawal,
				ExternalIBAN: "NL18INGB0001234567", Description: "Groceries"},
		}
		for _, tx := range txs {
			if _, err := h.Pipeline.CreateTransaction(ctx, tx); err != nil {
				return err
			}
		}

		// Create the goal after the first month so later months accrue into it.
		if month == 0 {
			goal := ledger.SavingGoal{
				SessionID:          sid,
				Name:               "Vacation",
				Goal:               ledger.NewMoney(1500),
				SavePerMonth:       ledger.NewMoney(250),
				MinBalanceRequired: ledger.NewMoney(500),
			}
			if _, err := h.Pipeline.CreateGoal(ctx, goal); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadOverdrawnScenario seeds a small deposit followed by a larger withdrawal,
// leaving the balance negative and a warning message behind.
func (h *Handler) loadOverdrawnScenario(ctx context.Context, sid ledger.SessionID) error {
	now := time.Now().UTC()
	txs := []ledger.Transaction{
		{SessionID: sid, Date: now.AddDate(0, 0, -14), Amount: ledger.NewMoney(200), Type: ledger.Deposit,
			ExternalIBAN: "NL39RABO0300065264", Description: "Allowance"},
		{SessionID: sid, Date: now.AddDate(0, 0, -2), Amount: ledger.NewMoney(320), Type: ledger.Withdrawal,
			ExternalIBAN: "NL02ABNA0123456789", Description: "Car repair"},
	}
	for _, tx := range txs {
		if _, err := h.Pipeline.CreateTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// loadInstallmentsScenario seeds a two-installment payment request and the
// deposits that fill it.
func (h *Handler) loadInstallmentsScenario(ctx context.Context, sid ledger.SessionID) error {
	now := time.Now().UTC()

	opening := ledger.Transaction{
		SessionID: sid, Date: now.AddDate(0, 0, -30), Amount: ledger.NewMoney(100), Type: ledger.Deposit,
		ExternalIBAN: "NL39RABO0300065264", Description: "Opening",
	}
	if _, err := h.Pipeline.CreateTransaction(ctx, opening); err != nil {
		return err
	}

	pr := ledger.PaymentRequest{
		SessionID:        sid,
		Description:      "Dinner split",
		DueDate:          now.AddDate(0, 0, 14),
		Amount:           ledger.NewMoney(25),
		NumberOfRequests: 2,
	}
	if _, err := h.Pipeline.CreateRequest(ctx, pr); err != nil {
		return err
	}

	repayments := []ledger.Transaction{
		{SessionID: sid, Date: now.AddDate(0, 0, -10), Amount: ledger.NewMoney(25), Type: ledger.Deposit,
			ExternalIBAN: "NL56DEUT0265186420", Description: "Dinner repayment"},
		{SessionID: sid, Date: now.AddDate(0, 0, -5), Amount: ledger.NewMoney(25), Type: ledger.Deposit,
			ExternalIBAN: "NL91ABNA0417164300", Description: "Dinner repayment"},
	}
	for _, tx := range repayments {
		if _, err := h.Pipeline.CreateTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
