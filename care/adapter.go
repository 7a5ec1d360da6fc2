/*
adapter.go - Optimistic shift write funnel

PURPOSE:
  ShiftAdapter owns the authoritative-vs-optimistic distinction for one
  shift. UI toggles (confirmed, locked) flip the local mirror immediately
  so the interface stays responsive, then persist; if the write fails the
  mirror rolls back to its last known-good value and the failure
  surfaces. Rollback is a first-class operation here rather than a
  scattering of local flags across view code.

SINGLE WRITER FUNNEL:
  Every shift mutation - UI toggles, clock events, the ride tracker's
  telemetry - goes through this adapter. The underlying store allows
  concurrent writers; funnelling keeps "one writer per field" true at the
  call-site level.

EXAMPLE:
  ad, err := care.OpenShift(ctx, store, "shift-17")
  if err := ad.SetConfirmed(ctx, true); err != nil {
      // mirror already rolled back; surface the failure
  }

SEE ALSO:
  - store.go: ShiftStore contract
  - ride/tracker.go: telemetry writes through Patch
*/
package care

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ShiftAdapter reconciles a local mirror of one shift with the store.
type ShiftAdapter struct {
	store ShiftStore
	id    ShiftID

	mu      sync.RWMutex
	current *Shift
}

// OpenShift loads the shift and returns its adapter.
func OpenShift(ctx context.Context, store ShiftStore, id ShiftID) (*ShiftAdapter, error) {
	s, err := store.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ShiftAdapter{store: store, id: id, current: s}, nil
}

// ID returns the shift this adapter funnels writes for.
func (a *ShiftAdapter) ID() ShiftID { return a.id }

// Current returns a copy of the local mirror.
func (a *ShiftAdapter) Current() Shift {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.current.Clone()
}

// Status derives the lifecycle state from the mirror.
func (a *ShiftAdapter) Status() ShiftStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.Status()
}

// Refresh re-reads the authoritative document into the mirror.
func (a *ShiftAdapter) Refresh(ctx context.Context) error {
	s, err := a.store.GetShift(ctx, a.id)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
	return nil
}

// Patch applies a partial update optimistically: the mirror first, then
// the store. On store failure the mirror rolls back and the error is
// returned untouched.
func (a *ShiftAdapter) Patch(ctx context.Context, p ShiftPatch) error {
	a.mu.Lock()
	prev := a.current
	next := a.current.Clone()
	p.Apply(next)
	a.current = next
	a.mu.Unlock()

	if err := a.store.PatchShift(ctx, a.id, p); err != nil {
		a.mu.Lock()
		a.current = prev
		a.mu.Unlock()
		return fmt.Errorf("patch shift %s: %w", a.id, err)
	}
	return nil
}

// SetConfirmed toggles the confirmed flag optimistically.
func (a *ShiftAdapter) SetConfirmed(ctx context.Context, v bool) error {
	return a.Patch(ctx, ShiftPatch{Confirmed: &v})
}

// SetLocked toggles the lock flag optimistically.
func (a *ShiftAdapter) SetLocked(ctx context.Context, v bool) error {
	return a.Patch(ctx, ShiftPatch{Locked: &v})
}

// SetReportAccess toggles report visibility for the assigned staff.
func (a *ShiftAdapter) SetReportAccess(ctx context.Context, v bool) error {
	return a.Patch(ctx, ShiftPatch{ReportAccess: &v})
}

// ClockIn stamps the shift's start-of-work time.
func (a *ShiftAdapter) ClockIn(ctx context.Context, at time.Time) error {
	return a.Patch(ctx, ShiftPatch{ClockIn: &at})
}

// ClockOut stamps end-of-work. Requires a clock-in on record.
func (a *ShiftAdapter) ClockOut(ctx context.Context, at time.Time) error {
	a.mu.RLock()
	hasIn := a.current.ClockIn != nil
	a.mu.RUnlock()
	if !hasIn {
		return ErrClockOrder
	}
	return a.Patch(ctx, ShiftPatch{ClockOut: &at})
}

// Cancel marks the shift cancelled.
func (a *ShiftAdapter) Cancel(ctx context.Context) error {
	v := true
	return a.Patch(ctx, ShiftPatch{Cancelled: &v})
}

// Watch subscribes to committed changes of this shift. Events also update
// the mirror so later reads see authoritative state.
func (a *ShiftAdapter) Watch(ctx context.Context) (<-chan Shift, CancelFunc, error) {
	ch, cancel, err := a.store.WatchShift(ctx, a.id)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Shift, cap(ch))
	go func() {
		defer close(out)
		for s := range ch {
			a.mu.Lock()
			a.current = s.Clone()
			a.mu.Unlock()
			select {
			case out <- s:
			default:
			}
		}
	}()
	return out, cancel, nil
}
