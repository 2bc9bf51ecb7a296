/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Session:
    SessionDTO

  Transaction:
    TransactionDTO, TransactionRequest, AssignCategoryRequest

  Category:
    CategoryDTO, CategoryRequest

  Category rule:
    CategoryRuleDTO, CategoryRuleRequest

  Balance history:
    CandlestickDTO

  Saving goal:
    SavingGoalDTO, SavingGoalRequest

  Payment request:
    PaymentRequestDTO, PaymentRequestRequest

  Message:
    MessageDTO

VALIDATION:
  Validation is done in handlers and the pipeline, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model these map onto
*/
package api

import (
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// dateLayout is the wire format for dates: ISO 8601 with milliseconds, UTC.
const dateLayout = "2006-01-02T15:04:05.000Z"

func formatDate(t time.Time) string { return t.UTC().Format(dateLayout) }

// parseDate accepts RFC3339 with or without fractional seconds.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &ledger.InvalidParameterError{Param: "date", Value: s}
	}
	return t.UTC(), nil
}

// =============================================================================
// SESSION
// =============================================================================

// SessionDTO carries the opaque session token handed to new clients.
type SessionDTO struct {
	ID string `json:"id"`
}

// =============================================================================
// TRANSACTION
// =============================================================================

// TransactionDTO represents a transaction in API responses. The category is
// embedded when assigned, omitted when the transaction is uncategorized.
type TransactionDTO struct {
	ID           int64        `json:"id"`
	Date         string       `json:"date"`
	Amount       float64      `json:"amount"`
	ExternalIBAN string       `json:"externalIBAN"`
	Type         string       `json:"type"`
	Description  string       `json:"description,omitempty"`
	Category     *CategoryDTO `json:"category,omitempty"`
}

// TransactionRequest is the request body for creating or replacing a
// transaction. CategoryID is optional; when absent the category rules decide.
type TransactionRequest struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	ExternalIBAN string  `json:"externalIBAN"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	CategoryID   *int64  `json:"category_id"`
}

// AssignCategoryRequest is the PATCH body for assigning a category.
type AssignCategoryRequest struct {
	CategoryID int64 `json:"category_id"`
}

// =============================================================================
// CATEGORY
// =============================================================================

type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// CATEGORY RULE
// =============================================================================

// CategoryRuleDTO represents an auto-categorization rule. The iBAN field
// keeps its odd casing; clients send and expect exactly that key.
type CategoryRuleDTO struct {
	ID             int64  `json:"id"`
	Description    string `json:"description"`
	IBAN           string `json:"iBAN"`
	Type           string `json:"type"`
	CategoryID     int64  `json:"category_id"`
	ApplyOnHistory bool   `json:"applyOnHistory"`
}

type CategoryRuleRequest struct {
	Description    string `json:"description"`
	IBAN           string `json:"iBAN"`
	Type           string `json:"type"`
	CategoryID     int64  `json:"category_id"`
	ApplyOnHistory bool   `json:"applyOnHistory"`
}

// =============================================================================
// BALANCE HISTORY
// =============================================================================

// CandlestickDTO is one balance-history bucket. Timestamp is the bucket start
// as unix seconds.
type CandlestickDTO struct {
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// =============================================================================
// SAVING GOAL
// =============================================================================

type SavingGoalDTO struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Goal               float64 `json:"goal"`
	SavePerMonth       float64 `json:"savePerMonth"`
	MinBalanceRequired float64 `json:"minBalanceRequired"`
	Balance            float64 `json:"balance"`
}

type SavingGoalRequest struct {
	Name               string  `json:"name"`
	Goal               float64 `json:"goal"`
	SavePerMonth       float64 `json:"savePerMonth"`
	MinBalanceRequired float64 `json:"minBalanceRequired"`
}

// =============================================================================
// PAYMENT REQUEST
// =============================================================================

// PaymentRequestDTO embeds the transactions matched against the request so
// far, in match order.
type PaymentRequestDTO struct {
	ID               int64            `json:"id"`
	Description      string           `json:"description"`
	DueDate          string           `json:"due_date"`
	Amount           float64          `json:"amount"`
	NumberOfRequests int              `json:"number_of_requests"`
	Filled           bool             `json:"filled"`
	Transactions     []TransactionDTO `json:"transactions"`
}

type PaymentRequestRequest struct {
	Description      string  `json:"description"`
	DueDate          string  `json:"due_date"`
	Amount           float64 `json:"amount"`
	NumberOfRequests int     `json:"number_of_requests"`
}

// =============================================================================
// MESSAGE
// =============================================================================

type MessageDTO struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
	Type    string `json:"type"`
}

// =============================================================================
// ERROR
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
