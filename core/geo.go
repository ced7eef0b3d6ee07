package core

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// DistanceKm returns the haversine great-circle distance to other in kilometers.
func (p GeoPoint) DistanceKm(other GeoPoint) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - p.Latitude) * math.Pi / 180
	dLon := (other.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox is an axis-aligned rectangle in coordinate space.
type BoundingBox struct {
	MinLatitude  float64 `json:"min_latitude" validate:"gte=-90,lte=90"`
	MaxLatitude  float64 `json:"max_latitude" validate:"gte=-90,lte=90"`
	MinLongitude float64 `json:"min_longitude" validate:"gte=-180,lte=180"`
	MaxLongitude float64 `json:"max_longitude" validate:"gte=-180,lte=180"`
}

// Contains reports whether the point lies inside the box, edges inclusive.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}
