package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoPoint_DistanceKm(t *testing.T) {
	newYork := GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	sanFrancisco := GeoPoint{Latitude: 37.7749, Longitude: -122.4194}

	d := newYork.DistanceKm(sanFrancisco)

	// Great-circle distance NYC -> SF is roughly 4130 km.
	assert.InDelta(t, 4130, d, 20)
}

func TestGeoPoint_DistanceKm_SamePoint(t *testing.T) {
	p := GeoPoint{Latitude: 47.6062, Longitude: -122.3321}
	assert.Equal(t, 0.0, p.DistanceKm(p))
}

func TestGeoPoint_DistanceKm_Symmetric(t *testing.T) {
	a := GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	b := GeoPoint{Latitude: 37.8025, Longitude: -122.4186}

	assert.InDelta(t, a.DistanceKm(b), b.DistanceKm(a), 1e-9)
}

func TestBoundingBox_Contains(t *testing.T) {
	box := BoundingBox{
		MinLatitude:  37.0,
		MaxLatitude:  38.0,
		MinLongitude: -123.0,
		MaxLongitude: -122.0,
	}

	assert.True(t, box.Contains(GeoPoint{Latitude: 37.7749, Longitude: -122.4194}))
	assert.True(t, box.Contains(GeoPoint{Latitude: 37.0, Longitude: -123.0}), "edges are inclusive")
	assert.False(t, box.Contains(GeoPoint{Latitude: 40.7128, Longitude: -74.0060}))
	assert.False(t, box.Contains(GeoPoint{Latitude: 37.5, Longitude: -121.9}))
}
