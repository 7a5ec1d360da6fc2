package care

import "time"

// =============================================================================
// SHIFT STATUS - Pure derivation from clock timestamps
// =============================================================================

// ShiftStatus is a derived lifecycle state. It is never persisted; every
// view computes it through DeriveStatus so there is a single source of
// truth. The same three states describe waypoint progress (ride package).
type ShiftStatus string

const (
	StatusIncomplete ShiftStatus = "Incomplete"
	StatusInProgress ShiftStatus = "InProgress"
	StatusCompleted  ShiftStatus = "Completed"
)

// DeriveStatus maps a shift's clock timestamps to its lifecycle state.
// Pure and total: every pointer combination resolves to a defined state.
// A clock-out without a clock-in violates an upstream invariant but still
// resolves to Completed rather than panicking.
func DeriveStatus(clockIn, clockOut *time.Time) ShiftStatus {
	switch {
	case clockOut != nil:
		return StatusCompleted
	case clockIn != nil:
		return StatusInProgress
	default:
		return StatusIncomplete
	}
}

// Status is DeriveStatus applied to the shift's own timestamps.
func (s *Shift) Status() ShiftStatus {
	return DeriveStatus(s.ClockIn, s.ClockOut)
}
