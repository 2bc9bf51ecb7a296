/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Component packages wrap these with additional context; the HTTP layer
  maps them onto status codes.

ERROR KINDS:
  NotFound         - unknown session or entity id             (404)
  InvalidParameter - malformed interval, count, date, body    (405)
  Conflict         - cross-session entity reference           (409)
  Unauthorized     - missing or unknown session token         (401)

USAGE:
  if ledger.IsNotFound(err) { ... }

  return &ledger.NotFoundError{Kind: "savingGoal", ID: id}
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a session or entity id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter is returned for malformed intervals, non-positive
	// counts, malformed dates, and invalid request bodies.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConflict is returned when an entity references an entity owned by a
	// different session.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when the session token is missing or unknown.
	ErrUnauthorized = errors.New("unauthorized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind string // e.g. "session", "transaction", "category"
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidParameterError identifies the offending parameter.
type InvalidParameterError struct {
	Param string
	Value string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Param, e.Value)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// ConflictError describes a cross-session reference.
type ConflictError struct {
	Kind string
	ID   any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v belongs to another session", e.Kind, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsInvalid(err error) bool      { return errors.Is(err, ErrInvalidParameter) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
