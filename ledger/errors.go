/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these with user-facing context ("insufficient balance",
  "cannot delete: would overpay").

ERROR CATEGORIES:
  1. Input errors - malformed or cross-counterparty data (caller bugs)
  2. Arithmetic errors - a subtraction that would go negative
  3. Store errors - rebuild races detected by the storage layer

PROPAGATION:
  The allocator and rebuilder are leaf components: they never retry.
  Every error is a rejected operation on one counterparty's data; nothing
  here is fatal to the process.
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
	// ErrInvalidInput is returned when malformed or cross-counterparty data
	// is handed to the allocator. This is a caller bug: reject, don't retry.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnderflow is returned when a Money subtraction would go negative.
	// Inside allocation math this indicates an upstream invariant violation
	// and is surfaced, never clamped.
	ErrUnderflow = errors.New("money underflow")

	// ErrRebuildConflict is returned when the storage layer detects two
	// rebuilds racing on the same counterparty (e.g. an optimistic-locking
	// version mismatch). Callers should retry the whole rebuild.
	ErrRebuildConflict = errors.New("concurrent rebuild conflict")

	// ErrInsufficientRemaining is returned by the write path when a new
	// payment exceeds the counterparty's remaining balance.
	ErrInsufficientRemaining = errors.New("payment exceeds remaining balance")

	// ErrWouldOverpay is returned by the write path when deleting or
	// shrinking a charge would leave total paid above total billed.
	ErrWouldOverpay = errors.New("edit would leave counterparty overpaid")

	// ErrChargeNotFound / ErrPaymentNotFound are returned by stores for
	// mutations referencing rows that do not exist.
	ErrChargeNotFound  = errors.New("charge not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError describes what was malformed and where.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// UnderflowError records the subtraction that would have gone negative.
type UnderflowError struct {
	From     Money
	Subtract Money
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("money underflow: %v - %v would be negative", e.From, e.Subtract)
}

func (e *UnderflowError) Unwrap() error { return ErrUnderflow }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRebuildConflict)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine or store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientRemaining) ||
		errors.Is(err, ErrWouldOverpay)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChargeNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
