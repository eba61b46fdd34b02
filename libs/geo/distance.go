// Package geo provides the great-circle distance math used by timeclock
// geofencing.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceMeters returns the Haversine distance between two points.
func DistanceMeters(a, b Point) float64 {
	latA := radians(a.Lat)
	latB := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether p lies within radiusMeters of center.
func WithinRadius(center, p Point, radiusMeters float64) bool {
	if radiusMeters <= 0 {
		return false
	}
	return DistanceMeters(center, p) <= radiusMeters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
