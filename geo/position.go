// Package geo provides coordinate types, great-circle distance math, and the
// geolocation source abstraction used by transportation rides.
package geo

import "math"

// Position is a single (latitude, longitude) sample in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the position carries usable coordinates.
// NaN, Inf, and out-of-range values all come from flaky device layers
// and are treated as "no update" by the distance filter.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	if math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
