package utils

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances
const EarthRadiusMeters = 6371000.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// CalculateHaversineDistance returns the great-circle distance in meters between two WGS84 points.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// WithinRadius reports whether point 2 lies within radiusMeters of point 1
func WithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return CalculateHaversineDistance(lat1, lon1, lat2, lon2) <= radiusMeters
}
