// Package geo provides great-circle distance calculations for station lookups.
package geo

import (
	"fmt"
	"math"
)

// Unit selects the distance unit used for a calculation. The unit is chosen
// once per call site and must be held constant for any threshold comparison.
type Unit int

const (
	Kilometers Unit = iota
	Miles
)

// Earth radii per unit
const (
	earthRadiusKm = 6371.0
	earthRadiusMi = 3956.0
)

// KmPerMile converts between the two supported units.
const KmPerMile = 1.609344

func (u Unit) String() string {
	if u == Miles {
		return "mi"
	}
	return "km"
}

// ParseUnit parses a configuration unit string ("km" or "mi").
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "km", "kilometers", "":
		return Kilometers, nil
	case "mi", "miles":
		return Miles, nil
	}
	return Kilometers, fmt.Errorf("unknown distance unit %q", s)
}

func (u Unit) radius() float64 {
	if u == Miles {
		return earthRadiusMi
	}
	return earthRadiusKm
}

// Distance returns the haversine great-circle distance between two
// coordinates in the given unit. Identical coordinates yield exactly 0.
func Distance(lat1, lon1, lat2, lon2 float64, unit Unit) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding error can push a slightly outside [0, 1] for antipodal or
	// near-coincident points, which would NaN the square roots below.
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return unit.radius() * c
}

// ValidateCoordinate returns an error when a latitude/longitude pair is
// outside the valid domain. Out-of-range coordinates indicate a caller bug
// and must abort the request rather than produce wrong statistics.
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}
