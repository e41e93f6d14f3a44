package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDistanceMilesIdentity verifies distance from a point to itself is zero
func TestDistanceMilesIdentity(t *testing.T) {
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 47.6062, Lon: -122.3321},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9, Lon: 179.9},
	}

	for _, p := range points {
		assert.InDelta(t, 0, DistanceMiles(p.Lat, p.Lon, p.Lat, p.Lon), 1e-9)
	}
}

// TestDistanceMilesSymmetry verifies d(a,b) == d(b,a)
func TestDistanceMilesSymmetry(t *testing.T) {
	a := Point{Lat: 47.6062, Lon: -122.3321} // Seattle
	b := Point{Lat: 45.5152, Lon: -122.6784} // Portland

	ab := DistanceMiles(a.Lat, a.Lon, b.Lat, b.Lon)
	ba := DistanceMiles(b.Lat, b.Lon, a.Lat, a.Lon)

	assert.InDelta(t, ab, ba, 1e-9)
	// Seattle to Portland is roughly 145 miles great-circle
	assert.InDelta(t, 145, ab, 5)
}

// TestDistanceTriangleInequality verifies d(a,c) <= d(a,b) + d(b,c)
func TestDistanceTriangleInequality(t *testing.T) {
	a := Point{Lat: 47.0, Lon: -122.0}
	b := Point{Lat: 47.5, Lon: -121.5}
	c := Point{Lat: 48.0, Lon: -122.5}

	assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c)+1e-9)
}

// TestBearingDegrees verifies cardinal bearings and range
func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		expected   float64
		tolerance  float64
	}{
		{name: "due north", lat1: 47.0, lon1: -122.0, lat2: 48.0, lon2: -122.0, expected: 0, tolerance: 0.1},
		{name: "due south", lat1: 48.0, lon1: -122.0, lat2: 47.0, lon2: -122.0, expected: 180, tolerance: 0.1},
		{name: "due east at equator", lat1: 0, lon1: 0, lat2: 0, lon2: 1, expected: 90, tolerance: 0.1},
		{name: "due west at equator", lat1: 0, lon1: 1, lat2: 0, lon2: 0, expected: 270, tolerance: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BearingDegrees(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.GreaterOrEqual(t, b, 0.0)
			assert.Less(t, b, 360.0)
			assert.InDelta(t, tt.expected, b, tt.tolerance)
		})
	}
}

// TestCentroid verifies the centroid of a symmetric square is its center
func TestCentroid(t *testing.T) {
	points := []Point{
		{Lat: 47.0, Lon: -122.0},
		{Lat: 47.0, Lon: -121.0},
		{Lat: 48.0, Lon: -122.0},
		{Lat: 48.0, Lon: -121.0},
	}

	c := Centroid(points)
	assert.InDelta(t, 47.5, c.Lat, 1e-9)
	assert.InDelta(t, -121.5, c.Lon, 1e-9)
}

// TestMeanVariance verifies the dispersion helpers
func TestMeanVariance(t *testing.T) {
	vs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(vs), 1e-9)
	assert.InDelta(t, 4.0, Variance(vs), 1e-9)

	constant := []float64{3, 3, 3}
	assert.InDelta(t, 0, Variance(constant), 1e-9)
}

// TestHeadingDelta verifies signed wrap-around behavior
func TestHeadingDelta(t *testing.T) {
	tests := []struct {
		name     string
		h1, h2   float64
		expected float64
	}{
		{name: "no change", h1: 90, h2: 90, expected: 0},
		{name: "right turn", h1: 10, h2: 40, expected: 30},
		{name: "left turn", h1: 40, h2: 10, expected: -30},
		{name: "wrap right through north", h1: 350, h2: 10, expected: 20},
		{name: "wrap left through north", h1: 10, h2: 350, expected: -20},
		{name: "reversal", h1: 0, h2: 180, expected: 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HeadingDelta(tt.h1, tt.h2), 1e-9)
		})
	}
}
