package pattern

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/track"
)

const milesPerDegreeLat = 69.09

// circleWindow builds n samples on a circle of the given radius (miles)
// around a center, one sample per step, with tangential headings.
func circleWindow(n int, radiusMiles, centerLat, centerLon float64, clockwise bool, step time.Duration) ([]track.PositionSample, []float64) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	window := make([]track.PositionSample, 0, n)
	headings := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n)
		theta := 2 * math.Pi * frac
		if !clockwise {
			theta = -theta
		}

		dLat := radiusMiles * math.Cos(theta) / milesPerDegreeLat
		dLon := radiusMiles * math.Sin(theta) / (milesPerDegreeLat * math.Cos(centerLat*math.Pi/180))

		window = append(window, track.PositionSample{
			Lat:    centerLat + dLat,
			Lon:    centerLon + dLon,
			SeenAt: base.Add(time.Duration(i) * step),
		})

		heading := math.Mod(theta*180/math.Pi+90, 360)
		if heading < 0 {
			heading += 360
		}
		headings = append(headings, heading)
	}

	return window, headings
}

// TestClassifyCirclingSyntheticOrbit covers the canonical property: 20
// points at constant 2-mile radius with monotonically rotating heading
// classify as circling with confidence >= 0.5 and radius ~2.0
func TestClassifyCirclingSyntheticOrbit(t *testing.T) {
	window, headings := circleWindow(20, 2.0, 47.5, -122.3, true, 15*time.Second)

	result := ClassifyCircling(window, headings, DefaultConfig())
	require.NotNil(t, result)

	assert.GreaterOrEqual(t, result.Confidence, 0.5)
	assert.InDelta(t, 2.0, result.RadiusMiles, 0.15)
	assert.Equal(t, "right", result.Direction)
	assert.InDelta(t, 47.5, result.Center.Lat, 0.05)

	// 360 degrees over ~4.75 minutes is a fast orbit
	assert.Greater(t, result.TurnRateDegPerMin, 6.0)
}

// TestClassifyCirclingMediumRisk verifies a wider fast orbit scores medium
func TestClassifyCirclingMediumRisk(t *testing.T) {
	window, headings := circleWindow(20, 3.0, 47.5, -122.3, true, 15*time.Second)

	result := ClassifyCircling(window, headings, DefaultConfig())
	require.NotNil(t, result)
	assert.Equal(t, RiskMedium, result.Risk)
}

// TestClassifyCirclingLeftDirection verifies the turn sign drives direction
func TestClassifyCirclingLeftDirection(t *testing.T) {
	window, headings := circleWindow(20, 2.0, 47.5, -122.3, false, 15*time.Second)

	result := ClassifyCircling(window, headings, DefaultConfig())
	require.NotNil(t, result)
	assert.Equal(t, "left", result.Direction)
}

// TestClassifyCirclingHighRisk verifies tight fast orbits escalate
func TestClassifyCirclingHighRisk(t *testing.T) {
	window, headings := circleWindow(20, 1.0, 47.5, -122.3, true, 15*time.Second)

	result := ClassifyCircling(window, headings, DefaultConfig())
	require.NotNil(t, result)
	assert.Equal(t, RiskHigh, result.Risk)
}

// TestClassifyCirclingShortWindow verifies insufficient history returns nil
func TestClassifyCirclingShortWindow(t *testing.T) {
	window, headings := circleWindow(6, 2.0, 47.5, -122.3, true, 15*time.Second)
	assert.Nil(t, ClassifyCircling(window, headings, DefaultConfig()))
}

// TestClassifyCirclingStraightLine verifies a transit does not classify
func TestClassifyCirclingStraightLine(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var window []track.PositionSample
	var headings []float64
	for i := 0; i < 20; i++ {
		window = append(window, track.PositionSample{
			Lat:    47.0 + float64(i)*0.02,
			Lon:    -122.0,
			SeenAt: base.Add(time.Duration(i) * 15 * time.Second),
		})
		headings = append(headings, 0)
	}

	assert.Nil(t, ClassifyCircling(window, headings, DefaultConfig()))
}

// TestClassifyCirclingTinyRadius verifies jitter around a fixed point is
// filtered by the radius floor
func TestClassifyCirclingTinyRadius(t *testing.T) {
	window, headings := circleWindow(20, 0.1, 47.5, -122.3, true, 15*time.Second)
	assert.Nil(t, ClassifyCircling(window, headings, DefaultConfig()))
}

// lawnmowerWindow builds an east-west survey grid: straight legs joined by
// 180-degree reversals.
func lawnmowerWindow(legs, legLen int) ([]track.PositionSample, []float64) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var window []track.PositionSample
	var headings []float64

	i := 0
	for leg := 0; leg < legs; leg++ {
		heading := 90.0
		if leg%2 == 1 {
			heading = 270.0
		}
		for p := 0; p < legLen; p++ {
			lon := -122.0 + float64(p)*0.01
			if leg%2 == 1 {
				lon = -122.0 + float64(legLen-1-p)*0.01
			}
			window = append(window, track.PositionSample{
				Lat:    47.0 + float64(leg)*0.01,
				Lon:    lon,
				SeenAt: base.Add(time.Duration(i) * 15 * time.Second),
			})
			headings = append(headings, heading)
			i++
		}
	}

	return window, headings
}

// TestClassifySearchPattern verifies a lawnmower grid classifies with a
// sensible covered radius
func TestClassifySearchPattern(t *testing.T) {
	window, headings := lawnmowerWindow(4, 4)

	result := ClassifySearchPattern(window, headings, DefaultConfig())
	require.NotNil(t, result)

	assert.Greater(t, result.ReversalRate, 0.10)
	assert.Greater(t, result.StraightLegRate, 0.30)
	assert.Greater(t, result.Confidence, 0.5)
	assert.Greater(t, result.CoveredRadiusMiles, 0.5)
}

// TestClassifySearchPatternShortWindow verifies insufficient history
// returns nil
func TestClassifySearchPatternShortWindow(t *testing.T) {
	window, headings := lawnmowerWindow(2, 4)
	assert.Nil(t, ClassifySearchPattern(window, headings, DefaultConfig()))
}

// TestClassifySearchPatternOrbitRejected verifies a circling aircraft does
// not classify as searching (steady turn, no straight legs)
func TestClassifySearchPatternOrbitRejected(t *testing.T) {
	window, headings := circleWindow(20, 2.0, 47.5, -122.3, true, 15*time.Second)
	assert.Nil(t, ClassifySearchPattern(window, headings, DefaultConfig()))
}
