/*
locator.go - Geolocation source abstraction

PURPOSE:
  Models the device geolocation service a ride tracker depends on: a
  point-in-time fix plus a continuous watch that emits samples until
  explicitly cleared.

CANCELLATION:
  Watch returns a handle; the caller MUST ClearWatch it on ride end, ride
  cancel, or tracker teardown. A leaked watch keeps emitting writes for a
  ride that no longer exists - tests treat that as a resource leak.

FAILURE:
  Permission denial or a missing device surfaces as ErrUnavailable from
  Current. Ride start checks Current first so a denied device never
  mutates the shift.

SEE ALSO:
  - ride/tracker.go: the only consumer
  - geo/feed.go: in-process implementation for tests and HTTP ingestion
*/
package geo

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the device cannot produce a fix:
// permission denied, no hardware, or no signal.
var ErrUnavailable = errors.New("geolocation unavailable")

// WatchHandle identifies one active position watch.
type WatchHandle int

// Locator is the geolocation source for a device in motion.
type Locator interface {
	// Current returns the latest fix, or ErrUnavailable.
	Current(ctx context.Context) (Position, error)

	// Watch registers cb for every subsequent sample and returns a handle.
	// cb is invoked sequentially, never concurrently with itself.
	Watch(cb func(Position)) (WatchHandle, error)

	// ClearWatch tears down a watch. Unknown handles are ignored.
	ClearWatch(h WatchHandle)
}
