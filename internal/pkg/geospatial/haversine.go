package geospatial

import (
	"math"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// EarthRadiusMeters is the mean radius of the spherical Earth model.
const EarthRadiusMeters = 6371000.0

// DefaultProximityMeters is the completion radius used when none is configured.
const DefaultProximityMeters = 100.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// DistanceMeters returns the great-circle distance between two locations.
func DistanceMeters(a, b domain.WalkLocation) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// DistanceKilometers returns DistanceMeters / 1000.
func DistanceKilometers(a, b domain.WalkLocation) float64 {
	return DistanceMeters(a, b) / 1000
}

// IsWithinRange reports whether to lies at most maxMeters from from.
func IsWithinRange(from, to domain.WalkLocation, maxMeters float64) bool {
	return DistanceMeters(from, to) <= maxMeters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// Used as an index-friendly prefilter before an exact distance check. Latitude
// is clamped to the poles. When the box touches a pole or crosses the
// antimeridian the longitude range widens to the whole globe.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	minLat, maxLat = lat-latDelta, lat+latDelta
	if minLat <= -90 || maxLat >= 90 {
		return math.Max(minLat, -90), -180, math.Min(maxLat, 90), 180
	}

	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))
	minLon, maxLon = lon-lonDelta, lon+lonDelta
	if minLon < -180 || maxLon > 180 {
		return minLat, -180, maxLat, 180
	}
	return minLat, minLon, maxLat, maxLon
}

// LngScale is the factor that turns a longitude difference at lat into the
// same ground distance as a latitude difference.
func LngScale(lat float64) float64 {
	return math.Cos(toRad(lat))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
