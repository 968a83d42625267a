// Package geo computes great-circle distance and bearing between coordinates.
//
// Inputs outside latitude [-90,90] or longitude [-180,180] are a caller
// precondition violation; the result for them is undefined.
package geo

import (
	"math"

	"github.com/okian/jacktrack/internal/domain/model"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371_000.0

const metersPerYard = 0.9144

// Distance returns the haversine distance from a to b in meters, rounded to
// the nearest meter.
func Distance(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(EarthRadiusM * c)
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// in [0,360), measured clockwise from true north. Bearing(a, a) is 0.
func Bearing(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Mod(degrees(math.Atan2(y, x))+360, 360)
	return deg
}

// MetersToYards converts meters to whole yards.
func MetersToYards(m float64) float64 {
	return math.Round(m / metersPerYard)
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
