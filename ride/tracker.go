/*
Package ride tracks in-progress transportation shifts.

PURPOSE:
  A Tracker owns one active ride: it gates the ride lifecycle
  (start / end / cancel), folds geolocation samples through the distance
  filter, and records ordered waypoint completion (pickup, optional
  visit, drop). All persistence funnels through the shift adapter; the
  transport sub-record has no other writer while the ride is live.

RIDE LIFECYCLE:

   StartRide ──▶ sampling ──▶ EndRide
       │             │
       │             └──▶ CancelRide / CancelShift  (terminal)
       └─ fails without mutation if geolocation is unavailable

WAYPOINTS:
  Completion is an explicit staff confirmation, in order. Position
  samples never mark a waypoint done - automatic geofenced detection is
  a possible later layer, not current behaviour. Done flags are
  monotonic until a new ride start resets the sub-record.

SEE ALSO:
  - geo/distance.go: jump rejection
  - care/adapter.go: the write funnel
*/
package ride

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/geo"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotTransportation = errors.New("shift is not a transportation shift")
	ErrRideStarted       = errors.New("ride already started")
	ErrRideNotStarted    = errors.New("ride not started")
	ErrRideEnded         = errors.New("ride already ended")
	ErrRideCancelled     = errors.New("ride cancelled")
	ErrWaypointOrder     = errors.New("previous waypoint not completed")
	ErrUnknownWaypoint   = errors.New("unknown waypoint")
)

// =============================================================================
// WAYPOINTS
// =============================================================================

// Waypoint names a stage of a transportation shift.
type Waypoint string

const (
	WaypointPickup Waypoint = "pickup"
	WaypointVisit  Waypoint = "visit"
	WaypointDrop   Waypoint = "drop"
)

// WaypointProgress is one waypoint's derived view.
type WaypointProgress struct {
	Name   Waypoint
	Done   bool
	Status care.ShiftStatus
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker drives one transportation shift's ride.
type Tracker struct {
	adapter *care.ShiftAdapter
	locator geo.Locator
	filter  geo.Filter

	mu       sync.Mutex
	watch    geo.WatchHandle
	watching bool
}

// NewTracker binds a tracker to a transportation shift.
func NewTracker(adapter *care.ShiftAdapter, locator geo.Locator) (*Tracker, error) {
	if adapter.Current().Category != care.CategoryTransportation {
		return nil, ErrNotTransportation
	}
	return &Tracker{adapter: adapter, locator: locator}, nil
}

// Waypoints returns the ride's ordered stages: two without a configured
// visit address, three with one.
func (t *Tracker) Waypoints() []Waypoint {
	cur := t.adapter.Current()
	if cur.HasVisit() {
		return []Waypoint{WaypointPickup, WaypointVisit, WaypointDrop}
	}
	return []Waypoint{WaypointPickup, WaypointDrop}
}

// StartRide begins tracking. It verifies geolocation availability before
// touching the shift, so permission denial leaves every flag unchanged.
// Starting resets the transport sub-record: distance to zero, positions
// and waypoint flags cleared.
func (t *Tracker) StartRide(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.adapter.Current()
	tr := s.Transport
	if s.Cancelled || (tr != nil && tr.Cancelled) {
		return ErrRideCancelled
	}
	if tr != nil && tr.RideStarted && !tr.RideEnded {
		return ErrRideStarted
	}

	// Device check first: all-or-nothing on failure.
	if _, err := t.locator.Current(ctx); err != nil {
		return fmt.Errorf("start ride: %w", err)
	}

	// Register the watch before touching the sub-record, so a device
	// failure here leaves the previous ride's telemetry intact. Samples
	// delivered before the patch lands are dropped by onSample, which
	// requires t.watching.
	h, err := t.locator.Watch(t.onSample)
	if err != nil {
		return fmt.Errorf("start ride: %w", err)
	}

	started := true
	if err := t.adapter.Patch(ctx, care.ShiftPatch{
		Transport: &care.TransportPatch{Reset: true, RideStarted: &started},
	}); err != nil {
		t.locator.ClearWatch(h)
		return err
	}
	t.watch = h
	t.watching = true
	return nil
}

// onSample folds one raw position through the filter and persists the
// updated total and positions through the adapter.
func (t *Tracker) onSample(p geo.Position) {
	t.mu.Lock()
	if !t.watching {
		t.mu.Unlock()
		return
	}
	s := t.adapter.Current()
	tr := s.Transport
	if tr == nil || !tr.RideStarted || tr.RideEnded || tr.Cancelled {
		t.mu.Unlock()
		return
	}
	if !p.Valid() {
		// Malformed sample: no update.
		t.mu.Unlock()
		return
	}

	total, last := t.filter.Accumulate(tr.LastPos, p, tr.DistanceKM)

	patch := care.ShiftPatch{Transport: &care.TransportPatch{
		DistanceKM: &total,
		LastPos:    last,
		CurrentPos: &p,
	}}
	t.mu.Unlock()

	_ = t.adapter.Patch(context.Background(), patch)
}

// ConfirmWaypoint marks a stage done. Stages complete in order; the first
// waypoint's predecessor condition is vacuously true.
func (t *Tracker) ConfirmWaypoint(ctx context.Context, w Waypoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.adapter.Current()
	tr := s.Transport
	if tr == nil || !tr.RideStarted {
		return ErrRideNotStarted
	}
	if tr.Cancelled || s.Cancelled {
		return ErrRideCancelled
	}
	if tr.RideEnded {
		return ErrRideEnded
	}

	done := true
	var patch care.TransportPatch
	switch w {
	case WaypointPickup:
		patch.PickupDone = &done
	case WaypointVisit:
		if !s.HasVisit() {
			return ErrUnknownWaypoint
		}
		if !tr.PickupDone {
			return ErrWaypointOrder
		}
		patch.VisitDone = &done
	case WaypointDrop:
		if !tr.PickupDone || (s.HasVisit() && !tr.VisitDone) {
			return ErrWaypointOrder
		}
		patch.DropDone = &done
	default:
		return ErrUnknownWaypoint
	}
	return t.adapter.Patch(ctx, care.ShiftPatch{Transport: &patch})
}

// EndRide stops tracking and tears down the position watch.
func (t *Tracker) EndRide(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.adapter.Current().Transport
	if tr == nil || !tr.RideStarted {
		return ErrRideNotStarted
	}
	if tr.RideEnded {
		return ErrRideEnded
	}
	if tr.Cancelled {
		return ErrRideCancelled
	}

	ended := true
	if err := t.adapter.Patch(ctx, care.ShiftPatch{
		Transport: &care.TransportPatch{RideEnded: &ended},
	}); err != nil {
		return err
	}
	t.clearWatchLocked()
	return nil
}

// CancelRide abandons the ride. Terminal: no further ride operations.
func (t *Tracker) CancelRide(ctx context.Context) error {
	return t.cancel(ctx, false)
}

// CancelShift cancels the whole shift along with its ride.
func (t *Tracker) CancelShift(ctx context.Context) error {
	return t.cancel(ctx, true)
}

func (t *Tracker) cancel(ctx context.Context, wholeShift bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.adapter.Current().Transport
	if tr != nil && tr.RideEnded {
		return ErrRideEnded
	}

	cancelled := true
	patch := care.ShiftPatch{Transport: &care.TransportPatch{Cancelled: &cancelled}}
	if wholeShift {
		patch.Cancelled = &cancelled
	}
	if err := t.adapter.Patch(ctx, patch); err != nil {
		return err
	}
	t.clearWatchLocked()
	return nil
}

// Close releases the position watch without touching the shift. Component
// teardown calls this.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearWatchLocked()
}

func (t *Tracker) clearWatchLocked() {
	if t.watching {
		t.locator.ClearWatch(t.watch)
		t.watching = false
	}
}

// Progress derives each waypoint's status: Completed when done,
// InProgress when it is the first not-done stage, Incomplete otherwise.
func (t *Tracker) Progress() []WaypointProgress {
	s := t.adapter.Current()
	tr := s.Transport
	done := func(w Waypoint) bool {
		if tr == nil {
			return false
		}
		switch w {
		case WaypointPickup:
			return tr.PickupDone
		case WaypointVisit:
			return tr.VisitDone
		case WaypointDrop:
			return tr.DropDone
		}
		return false
	}

	names := t.Waypoints()
	out := make([]WaypointProgress, len(names))
	prevDone := true // vacuous for the first waypoint
	for i, w := range names {
		d := done(w)
		status := care.StatusIncomplete
		switch {
		case d:
			status = care.StatusCompleted
		case prevDone:
			status = care.StatusInProgress
		}
		out[i] = WaypointProgress{Name: w, Done: d, Status: status}
		prevDone = d
	}
	return out
}

// DistanceKM returns the current filtered total.
func (t *Tracker) DistanceKM() float64 {
	tr := t.adapter.Current().Transport
	if tr == nil {
		return 0
	}
	return tr.DistanceKM
}
