package domain

import (
	"math"
	"time"
)

// DefaultRadiusMeters is the geofence radius of a site created without one
const DefaultRadiusMeters = 100.0

// WorkSite is a construction site (cantiere)
type WorkSite struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Address      string    `json:"address"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"isActive"`
	RadiusMeters float64   `json:"radiusMeters"`
	CreatedAt    time.Time `json:"createdAt"`
}

const earthRadiusMeters = 6371000.0

// DistanceMeters is the haversine distance between two coordinates
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Contains reports whether (lat, lng) lies inside the site geofence
func (w WorkSite) Contains(lat, lng float64) bool {
	radius := w.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	return DistanceMeters(w.Latitude, w.Longitude, lat, lng) <= radius
}
