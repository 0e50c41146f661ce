/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every condition is local, typed and recoverable; the engine never
  corrects input silently (a negative quantity is rejected, not clamped).

ERROR CATEGORIES:
  1. Input errors - granularity, non-positive quantity, bad date range
  2. State errors - not found, locked (soft-deleted), invalid transition
  3. Store errors - concurrent modification detected by version checks

USAGE:
  Domain packages wrap these with context:

    if errors.Is(err, generic.ErrRecordLocked) {
        // request was soft-deleted; nothing more can happen to it
    }

SEE ALSO:
  - timeoff/lifecycle.go: TransitionError wraps ErrInvalidTransition
  - api/handlers.go: maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidGranularity is returned when an hour quantity is not a
	// multiple of 0.5.
	ErrInvalidGranularity = errors.New("quantity must be a multiple of 0.5 hours")

	// ErrNonPositiveQuantity is returned for a zero or negative stored
	// request amount.
	ErrNonPositiveQuantity = errors.New("quantity must be positive")

	// ErrNotFound is returned when a transition targets an unknown request.
	ErrNotFound = errors.New("request not found")

	// ErrRecordLocked is returned for any change to a soft-deleted request.
	ErrRecordLocked = errors.New("request is deleted and locked")

	// ErrInvalidTransition is returned when an action is not valid from the
	// current status, including a double approve.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDateRange is returned when to < from.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrInvalidCategory is returned for an unregistered leave category.
	ErrInvalidCategory = errors.New("unknown leave category")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidInsurance is returned for an insurance record with a missing
	// employee id or a negative amount.
	ErrInvalidInsurance = errors.New("invalid insurance record")

	// ErrInsuranceNotFound is returned when an employee has no insurance record.
	ErrInsuranceNotFound = errors.New("insurance record not found")

	// ErrInvalidEmployee is returned for an employee record missing its id
	// or hire date, or carrying a negative entitlement base.
	ErrInvalidEmployee = errors.New("invalid employee record")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidPolicy is returned when policy configuration is malformed.
	ErrInvalidPolicy = errors.New("invalid leave policy")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// GranularityError reports the offending quantity.
type GranularityError struct {
	Value decimal.Decimal
}

func (e *GranularityError) Error() string {
	return fmt.Sprintf("%s: got %s", ErrInvalidGranularity, e.Value)
}

func (e *GranularityError) Unwrap() error {
	return ErrInvalidGranularity
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, ErrNonPositiveQuantity) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidEmployee) ||
		errors.Is(err, ErrInvalidInsurance)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrInsuranceNotFound)
}

// IsConflict returns true if the error is a state conflict on an existing record.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRecordLocked) ||
		errors.Is(err, ErrConcurrentModification)
}
