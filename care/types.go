/*
Package care provides the core shift coordination domain.

PURPOSE:
  This package contains the records and store contracts for coordinating
  field-service work assignments ("shifts") at a care-staffing agency:
  completion state, ownership transfer between staff, time-off requests,
  per-recipient notifications, and live telemetry for transportation
  shifts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift: one scheduled unit of care/transport work
  - Transport: the sub-record a transportation shift carries while a
    ride is tracked (flags, accumulated distance, positions, waypoints)
  - Typed identifiers: ShiftID, StaffID, ClientID

DESIGN PRINCIPLES:
  1. Derived status: a shift's lifecycle state is computed from its
     clock timestamps, never stored (status.go)
  2. Single writer funnel: every shift mutation goes through the
     ShiftAdapter (adapter.go); nothing else patches the store
  3. Type safety: strong ID types prevent mixing staff/shift/client ids

SEE ALSO:
  - status.go: lifecycle derivation
  - store.go: persistence contracts and patch types
  - adapter.go: optimistic update funnel
*/
package care

import (
	"time"

	"github.com/brightpath/shift-engine/geo"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ShiftID string
type StaffID string
type ClientID string

// StaffRef pairs an id with a display name for notification text.
type StaffRef struct {
	ID   StaffID
	Name string
}

// =============================================================================
// SHIFT - One work assignment
// =============================================================================

// Category is the kind of care a shift delivers. Only Transportation
// shifts carry a Transport sub-record.
type Category string

const (
	CategoryTransportation       Category = "Transportation"
	CategoryRespiteCare          Category = "Respite Care"
	CategoryEmergentCare         Category = "Emergent Care"
	CategorySupervisedVisitation Category = "Supervised Visitation"
)

type Shift struct {
	ID       ShiftID
	StaffID  StaffID
	ClientID ClientID
	Category Category

	ScheduledStart time.Time
	ScheduledEnd   time.Time

	// Execution state. ClockOut set implies ClockIn set; status is
	// derived from these two, never stored.
	ClockIn  *time.Time
	ClockOut *time.Time

	Confirmed    bool
	Locked       bool
	ReportAccess bool
	Cancelled    bool

	// VisitAddress is the client's configured mid-ride stop. When empty,
	// a transportation ride has two waypoints (pickup, drop); when set,
	// three (pickup, visit, drop).
	VisitAddress string

	// Transport is present only for CategoryTransportation shifts.
	Transport *Transport
}

// Transport is the in-ride telemetry sub-record of a transportation shift.
// It is owned exclusively by the active ride tracker; no other writer may
// touch it while a ride is live.
type Transport struct {
	RideStarted bool
	RideEnded   bool
	Cancelled   bool

	// DistanceKM is the jump-filtered accumulated ride distance.
	DistanceKM float64

	LastPos    *geo.Position
	CurrentPos *geo.Position

	// Waypoint completion flags. Monotonic: once true they stay true
	// until an explicit new-ride start resets the whole sub-record.
	PickupDone bool
	VisitDone  bool
	DropDone   bool
}

// HasVisit reports whether the shift's ride includes a visit waypoint.
func (s *Shift) HasVisit() bool { return s.VisitAddress != "" }

// Clone returns a deep copy, so adapter snapshots and store reads never
// alias live state.
func (s *Shift) Clone() *Shift {
	if s == nil {
		return nil
	}
	out := *s
	out.ClockIn = cloneTime(s.ClockIn)
	out.ClockOut = cloneTime(s.ClockOut)
	if s.Transport != nil {
		t := *s.Transport
		t.LastPos = clonePos(s.Transport.LastPos)
		t.CurrentPos = clonePos(s.Transport.CurrentPos)
		out.Transport = &t
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePos(p *geo.Position) *geo.Position {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
