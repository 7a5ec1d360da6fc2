package care_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/geo"
)

func boolp(v bool) *bool          { return &v }
func f64p(v float64) *float64     { return &v }
func staffp(v string) *care.StaffID {
	id := care.StaffID(v)
	return &id
}

func TestShiftPatch_AppliesNamedFieldsOnly(t *testing.T) {
	s := &care.Shift{
		ID:        "s1",
		StaffID:   "staff-a",
		Category:  care.CategoryRespiteCare,
		Confirmed: true,
	}

	care.ShiftPatch{StaffID: staffp("staff-b")}.Apply(s)

	assert.Equal(t, care.StaffID("staff-b"), s.StaffID)
	assert.True(t, s.Confirmed, "untouched field must survive")
}

func TestTransportPatch_DoneFlagsAreMonotonic(t *testing.T) {
	s := &care.Shift{
		ID:       "s1",
		Category: care.CategoryTransportation,
		Transport: &care.Transport{
			RideStarted: true,
			PickupDone:  true,
		},
	}

	// A false write to a completed waypoint is dropped.
	care.ShiftPatch{Transport: &care.TransportPatch{PickupDone: boolp(false)}}.Apply(s)
	assert.True(t, s.Transport.PickupDone, "done flag lowered without reset")

	// True writes still land.
	care.ShiftPatch{Transport: &care.TransportPatch{VisitDone: boolp(true)}}.Apply(s)
	assert.True(t, s.Transport.VisitDone)
}

func TestTransportPatch_ResetClearsSubRecord(t *testing.T) {
	s := &care.Shift{
		ID:       "s1",
		Category: care.CategoryTransportation,
		Transport: &care.Transport{
			RideStarted: true,
			RideEnded:   true,
			DistanceKM:  12.4,
			PickupDone:  true,
			DropDone:    true,
			LastPos:     &geo.Position{Lat: 40, Lon: -74},
		},
	}

	care.ShiftPatch{Transport: &care.TransportPatch{
		Reset:       true,
		RideStarted: boolp(true),
	}}.Apply(s)

	tr := s.Transport
	assert.True(t, tr.RideStarted)
	assert.False(t, tr.RideEnded)
	assert.False(t, tr.PickupDone, "reset must clear waypoint flags")
	assert.False(t, tr.DropDone)
	assert.Zero(t, tr.DistanceKM)
	assert.Nil(t, tr.LastPos)
}

func TestTransportPatch_TelemetryFields(t *testing.T) {
	s := &care.Shift{
		ID:        "s1",
		Category:  care.CategoryTransportation,
		Transport: &care.Transport{RideStarted: true},
	}

	p := geo.Position{Lat: 40.001, Lon: -74}
	care.ShiftPatch{Transport: &care.TransportPatch{
		DistanceKM: f64p(0.111),
		LastPos:    &p,
		CurrentPos: &p,
	}}.Apply(s)

	assert.Equal(t, 0.111, s.Transport.DistanceKM)
	assert.Equal(t, p, *s.Transport.LastPos)
	assert.Equal(t, p, *s.Transport.CurrentPos)
}

func TestClone_IsDeep(t *testing.T) {
	orig := &care.Shift{
		ID:       "s1",
		Category: care.CategoryTransportation,
		ClockIn:  ts(9),
		Transport: &care.Transport{
			DistanceKM: 1.5,
			LastPos:    &geo.Position{Lat: 40, Lon: -74},
		},
	}

	cp := orig.Clone()
	cp.Transport.DistanceKM = 99
	cp.Transport.LastPos.Lat = 0
	*cp.ClockIn = cp.ClockIn.Add(1)

	assert.Equal(t, 1.5, orig.Transport.DistanceKM)
	assert.Equal(t, 40.0, orig.Transport.LastPos.Lat)
	assert.Equal(t, *ts(9), *orig.ClockIn)
}
