/*
store.go - Persistence contracts for the shift document store

PURPOSE:
  Defines the interface between the domain logic and the document store.
  Collections: shifts, transfer requests, leave requests, and a
  per-recipient notification mailbox. Different implementations back this
  with SQLite or in-memory maps.

PARTIAL UPDATES:
  Shifts are mutated through typed patches (ShiftPatch). A patch names
  only the fields it touches; the store applies it atomically against the
  current document. Waypoint done-flags are write-once inside a ride:
  Apply ignores attempts to lower them unless the patch resets the whole
  transport sub-record (new ride start).

ATOMIC TRANSACTIONS:
  WithTx runs a function against transactional views of every collection.
  Approving a transfer mutates three documents (shift owner, request
  status, requester notification); either all land or none do. A crash
  between steps must never leave the shift reassigned while the request
  stays pending.

LIVE SUBSCRIPTIONS:
  WatchShift and WatchUnread push fresh state to the UI on every commit.
  Both return a cancel func the caller must invoke; leaked watches are
  treated as bugs in tests.

IMPLEMENTATIONS:
  - store/memory: in-memory, snapshot-rollback transactions (tests/dev)
  - store/sqlite: production SQLite with sql.Tx

SEE ALSO:
  - adapter.go: the single funnel for shift writes
  - transfer/workflow.go, leave/workflow.go: WithTx consumers
*/
package care

import (
	"context"
	"time"

	"github.com/brightpath/shift-engine/geo"
)

// CancelFunc tears down a live subscription. Safe to call twice.
type CancelFunc func()

// =============================================================================
// SHIFT PATCH - Typed partial update
// =============================================================================

// ShiftPatch names the fields a write touches. Nil means "leave alone".
type ShiftPatch struct {
	StaffID      *StaffID
	ClockIn      *time.Time
	ClockOut     *time.Time
	Confirmed    *bool
	Locked       *bool
	ReportAccess *bool
	Cancelled    *bool
	Transport    *TransportPatch
}

// TransportPatch is the transportation sub-record's partial update.
type TransportPatch struct {
	// Reset clears the whole sub-record before the rest of the patch is
	// applied. Only a new ride start sets this.
	Reset bool

	RideStarted *bool
	RideEnded   *bool
	Cancelled   *bool
	DistanceKM  *float64
	LastPos     *geo.Position
	CurrentPos  *geo.Position
	PickupDone  *bool
	VisitDone   *bool
	DropDone    *bool
}

// Apply folds the patch into a shift in place. Store implementations call
// this under their own write lock / transaction.
func (p ShiftPatch) Apply(s *Shift) {
	if p.StaffID != nil {
		s.StaffID = *p.StaffID
	}
	if p.ClockIn != nil {
		v := *p.ClockIn
		s.ClockIn = &v
	}
	if p.ClockOut != nil {
		v := *p.ClockOut
		s.ClockOut = &v
	}
	if p.Confirmed != nil {
		s.Confirmed = *p.Confirmed
	}
	if p.Locked != nil {
		s.Locked = *p.Locked
	}
	if p.ReportAccess != nil {
		s.ReportAccess = *p.ReportAccess
	}
	if p.Cancelled != nil {
		s.Cancelled = *p.Cancelled
	}
	if p.Transport != nil {
		if s.Transport == nil {
			s.Transport = &Transport{}
		}
		p.Transport.apply(s.Transport)
	}
}

func (tp TransportPatch) apply(t *Transport) {
	if tp.Reset {
		*t = Transport{}
	}
	if tp.RideStarted != nil {
		t.RideStarted = *tp.RideStarted
	}
	if tp.RideEnded != nil {
		t.RideEnded = *tp.RideEnded
	}
	if tp.Cancelled != nil {
		t.Cancelled = *tp.Cancelled
	}
	if tp.DistanceKM != nil {
		t.DistanceKM = *tp.DistanceKM
	}
	if tp.LastPos != nil {
		v := *tp.LastPos
		t.LastPos = &v
	}
	if tp.CurrentPos != nil {
		v := *tp.CurrentPos
		t.CurrentPos = &v
	}
	// Done flags are monotonic: a false write is dropped unless the
	// patch reset the sub-record above.
	if tp.PickupDone != nil && (*tp.PickupDone || tp.Reset) {
		t.PickupDone = *tp.PickupDone
	}
	if tp.VisitDone != nil && (*tp.VisitDone || tp.Reset) {
		t.VisitDone = *tp.VisitDone
	}
	if tp.DropDone != nil && (*tp.DropDone || tp.Reset) {
		t.DropDone = *tp.DropDone
	}
}

// =============================================================================
// COLLECTION STORES
// =============================================================================

// ShiftStore is point read, partial update, and live subscription for one
// collection of shifts.
type ShiftStore interface {
	// GetShift returns a copy of the shift, or ErrShiftNotFound.
	GetShift(ctx context.Context, id ShiftID) (*Shift, error)

	// PutShift creates or replaces a whole document. Scheduling and demo
	// seeding use this; runtime mutation goes through PatchShift.
	PutShift(ctx context.Context, s *Shift) error

	// PatchShift applies a partial update atomically.
	PatchShift(ctx context.Context, id ShiftID, p ShiftPatch) error

	// ListShifts returns all shifts ordered by scheduled start.
	ListShifts(ctx context.Context) ([]Shift, error)

	// WatchShift emits a fresh copy after every committed change.
	WatchShift(ctx context.Context, id ShiftID) (<-chan Shift, CancelFunc, error)
}

// TransferStore persists transfer requests.
type TransferStore interface {
	SaveTransfer(ctx context.Context, r *TransferRequest) error
	GetTransfer(ctx context.Context, id TransferID) (*TransferRequest, error)
	ListPendingTransfers(ctx context.Context) ([]TransferRequest, error)
}

// LeaveStore persists leave requests.
type LeaveStore interface {
	SaveLeave(ctx context.Context, r *LeaveRequest) error
	GetLeave(ctx context.Context, id LeaveID) (*LeaveRequest, error)
	ListPendingLeaves(ctx context.Context) ([]LeaveRequest, error)
}

// NotificationStore is the per-recipient mailbox collection.
type NotificationStore interface {
	AddNotification(ctx context.Context, n *Notification) error

	GetNotification(ctx context.Context, recipient StaffID, id NotificationID) (*Notification, error)

	// MarkNotificationRead flips Read true. Monotonic: re-marking an
	// already-read entry is a no-op.
	MarkNotificationRead(ctx context.Context, recipient StaffID, id NotificationID) error

	// ResolveRequestNotifications stamps the terminal resolution onto
	// every request notification referencing (kind, refID). Called in
	// the same transaction that resolves the request itself.
	ResolveRequestNotifications(ctx context.Context, kind RequestKind, refID string, resolution string) error

	// ListNotifications returns a recipient's mailbox, newest first.
	// unreadOnly filters to Read = false.
	ListNotifications(ctx context.Context, recipient StaffID, unreadOnly bool) ([]Notification, error)

	// WatchUnread emits the recipient's unread entries (newest first)
	// after every committed change to the mailbox.
	WatchUnread(ctx context.Context, recipient StaffID) (<-chan []Notification, CancelFunc, error)
}

// =============================================================================
// STORES - Everything, plus atomic multi-document transactions
// =============================================================================

// Stores bundles all collections. WithTx hands a transactional view of
// this same interface to its function.
type Stores interface {
	ShiftStore
	TransferStore
	LeaveStore
	NotificationStore
}

// TxStore is a Stores with an atomic multi-document transaction
// primitive. If fn returns an error, nothing it wrote is retained.
type TxStore interface {
	Stores

	WithTx(ctx context.Context, fn func(Stores) error) error
}
