package geo

import "math"

const (
	earthRadiusMeters = 6_371_000.0
	metersPerMile     = 1_609.344
)

// Haversine returns the great-circle distance in meters between two points.
// The result is symmetric in its arguments and exactly zero for coincident points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1r)*math.Cos(lat2r)*sinLon*sinLon
	// Clamp: rounding can push a slightly past 1 for antipodal points.
	a = math.Min(1, a)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusMeters * c
}

// MetersToMiles converts a distance in meters to statute miles.
// Infinity stays infinity.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}
