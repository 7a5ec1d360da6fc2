/*
requests.go - Transfer and leave request records

PURPOSE:
  The two request flavours the agency runs through approval workflows:
  reassigning a shift's owner to a peer (TransferRequest) and taking time
  off (LeaveRequest). Both share the same lifecycle shape:

      pending ──▶ approved   (terminal)
              └─▶ rejected/declined (terminal)

  Terminal states are immutable. Resolving an already-resolved request is
  a benign no-op, not an error - duplicate clicks and duplicate
  notification deliveries must be harmless (see transfer/ and leave/).

SEE ALSO:
  - transfer/workflow.go: transfer lifecycle + idempotency guard
  - leave/workflow.go: leave lifecycle
  - notification.go: the mailbox entries these flows emit
*/
package care

import "time"

// =============================================================================
// TRANSFER REQUEST - An offer to reassign a shift's owner
// =============================================================================

type TransferID string

type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

type TransferRequest struct {
	ID      TransferID
	ShiftID ShiftID

	FromStaffID   StaffID
	FromStaffName string
	ToStaffID     StaffID
	ToStaffName   string

	Reason string

	Status TransferStatus

	// ResolutionNote carries the optional rejection reason.
	ResolutionNote string

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Resolved reports whether the request reached a terminal state.
func (r *TransferRequest) Resolved() bool { return r.Status != TransferPending }

// =============================================================================
// LEAVE REQUEST - Time off, resolved by an administrator
// =============================================================================

type LeaveID string

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveDeclined LeaveStatus = "declined"
)

type LeaveType string

const (
	LeaveAnnual    LeaveType = "annual"
	LeaveSick      LeaveType = "sick"
	LeaveEmergency LeaveType = "emergency"
	LeaveUnpaid    LeaveType = "unpaid"
)

type LeaveRequest struct {
	ID LeaveID

	RequesterID   StaffID
	RequesterName string

	Type   LeaveType
	Reason string

	StartDate time.Time
	EndDate   time.Time

	Status         LeaveStatus
	ResolutionNote string

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (r *LeaveRequest) Resolved() bool { return r.Status != LeavePending }
