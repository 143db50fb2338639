package domain

import "fmt"

// WalkLocation is a WGS 84 coordinate in degrees.
type WalkLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the coordinate lies inside the valid degree ranges.
func (l WalkLocation) Validate() error {
	if !(l.Lat >= -90 && l.Lat <= 90) {
		return &ValidationError{Field: "lat", Reason: fmt.Sprintf("%g is outside [-90, 90]", l.Lat)}
	}
	if !(l.Lng >= -180 && l.Lng <= 180) {
		return &ValidationError{Field: "lng", Reason: fmt.Sprintf("%g is outside [-180, 180]", l.Lng)}
	}
	return nil
}

// RoutePoint is one vertex of a walking path, in provider order (longitude first).
type RoutePoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// RouteInfo is a computed walking route. It is derived per request and never persisted.
type RouteInfo struct {
	Path            []RoutePoint `json:"path"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
}
