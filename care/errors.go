/*
errors.go - Centralized error types for the coordination core

PURPOSE:
  All domain error values in one place. Callers classify with errors.Is
  and the helpers below; the HTTP layer maps classes to status codes.

ERROR CLASSES:
  1. Not-found   - operating on a missing shift/request/notification.
     Fatal for that operation, surfaced, never retried automatically.
  2. User input  - rejected before any store write; no partial state.
  3. Device      - geolocation denied/unavailable (see geo.ErrUnavailable);
     ride flags stay untouched.
  Benign no-ops (resolving an already-resolved request) are NOT errors:
  the operation succeeds without re-applying effects.

SEE ALSO:
  - transfer/workflow.go, leave/workflow.go: producers
  - api/handlers.go: status-code mapping
*/
package care

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrShiftNotFound        = errors.New("shift not found")
	ErrTransferNotFound     = errors.New("transfer request not found")
	ErrLeaveNotFound        = errors.New("leave request not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUserInput marks a request rejected before any store write.
	ErrUserInput = errors.New("invalid user input")

	// ErrClockOrder is returned when a clock-out is attempted without a
	// clock-in on record.
	ErrClockOrder = errors.New("clock-out requires clock-in")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// UserInputError carries which field failed and why.
type UserInputError struct {
	Field   string
	Message string
}

func (e *UserInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *UserInputError) Unwrap() error { return ErrUserInput }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether the error is a missing-document error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrTransferNotFound) ||
		errors.Is(err, ErrLeaveNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// IsUserError reports whether the error is the caller's input, not state.
func IsUserError(err error) bool {
	return errors.Is(err, ErrUserInput) || errors.Is(err, ErrClockOrder)
}
