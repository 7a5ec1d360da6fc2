/*
distance.go - Accumulated ride distance with GPS noise rejection

PURPOSE:
  Converts a stream of raw coordinate samples into a monotonic accumulated
  distance. Consumer-grade GPS occasionally emits a wild sample (cold fix,
  tunnel exit, multipath); without filtering, a single outlier adds thousands
  of kilometres to a ride.

JUMP REJECTION:
  A delta between consecutive samples larger than JumpThresholdKM is
  discarded: the running total is unchanged, but the last-known position
  STILL advances to the new sample. This matters - if the outlier were also
  ignored for position tracking, every later delta would be computed against
  the pre-outlier point and the offset would never recover.

UNITS:
  Kilometres everywhere. Earth radius 6371 km (spherical approximation).

EXAMPLE:
  f := geo.Filter{}
  total, last := f.Accumulate(nil, sample, 0)
  total, last = f.Accumulate(&last, next, total)

SEE ALSO:
  - ride/tracker.go: feeds position samples through this filter
*/
package geo

import "math"

// EarthRadiusKM is the spherical-earth radius used by Haversine.
const EarthRadiusKM = 6371.0

// JumpThresholdKM is the largest plausible delta between two consecutive
// samples. 500 m covers several seconds of highway driving with margin.
const JumpThresholdKM = 0.5

// Haversine returns the great-circle distance between two positions in km.
func Haversine(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Filter accumulates ride distance from raw samples, rejecting jumps.
// The zero value is ready to use.
type Filter struct {
	// Threshold overrides JumpThresholdKM when positive.
	Threshold float64
}

func (f Filter) threshold() float64 {
	if f.Threshold > 0 {
		return f.Threshold
	}
	return JumpThresholdKM
}

// Accumulate folds one sample into the running total.
//
// Rules, in order:
//   - malformed sample: zero delta, last position does NOT advance
//   - first sample (last == nil): zero delta, position advances
//   - delta > threshold: discarded as noise, position advances
//   - otherwise: total += delta, position advances
//
// The returned total never decreases; resets are an external concern
// (a new ride start clears the whole transport sub-record).
func (f Filter) Accumulate(last *Position, next Position, total float64) (float64, *Position) {
	if !next.Valid() {
		return total, last
	}
	if last == nil || !last.Valid() {
		return total, &next
	}

	delta := Haversine(*last, next)
	if delta > f.threshold() {
		// Noise. Not counted, but the position advances so the next
		// delta is computed from here.
		return total, &next
	}
	return total + delta, &next
}
