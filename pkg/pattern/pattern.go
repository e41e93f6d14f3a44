// Package pattern scores trajectory shape from a short position/heading
// window: circling orbits, search/survey grids, or neither. Windows below
// the configured minimum are insufficient evidence and classify as
// nothing, never as a low-confidence guess.
package pattern

import (
	"math"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/track"
)

// Risk levels attached to circling classifications.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// Scoring weights for the circling confidence blend.
const (
	weightRadiusConsistency = 0.3
	weightTurnConsistency   = 0.4
	weightTurnRate          = 0.2
	weightClosure           = 0.1

	// turnRatePresentDegPerMin is the sustained turn rate below which the
	// turn-rate term contributes nothing.
	turnRatePresentDegPerMin = 3.0
)

// Config holds the classification thresholds.
type Config struct {
	MinCirclingSamples int
	MinSearchSamples   int
	// MinCirclingRadiusMiles filters out GPS jitter around a near-fixed
	// point (hovering helicopters, parked aircraft with bad positions).
	MinCirclingRadiusMiles float64
	// ReversalDegrees is the heading change within two steps that counts
	// as a course reversal.
	ReversalDegrees float64
	// StraightLegDegrees is the per-step heading change under which a leg
	// counts as straight.
	StraightLegDegrees float64
	MinReversalRate    float64
	MinStraightLegRate float64
}

// DefaultConfig returns the production classification thresholds.
func DefaultConfig() Config {
	return Config{
		MinCirclingSamples:     10,
		MinSearchSamples:       12,
		MinCirclingRadiusMiles: 0.5,
		ReversalDegrees:        150,
		StraightLegDegrees:     10,
		MinReversalRate:        0.10,
		MinStraightLegRate:     0.30,
	}
}

// Circling is a positive orbit classification.
type Circling struct {
	Direction         string    `json:"direction"` // left or right
	RadiusMiles       float64   `json:"radius_miles"`
	TurnRateDegPerMin float64   `json:"turn_rate_deg_per_min"`
	Confidence        float64   `json:"confidence"`
	Risk              string    `json:"risk"`
	Center            geo.Point `json:"center"`
}

// SearchPattern is a positive search/survey grid classification.
type SearchPattern struct {
	ReversalRate       float64 `json:"reversal_rate"`
	StraightLegRate    float64 `json:"straight_leg_rate"`
	Confidence         float64 `json:"confidence"`
	CoveredRadiusMiles float64 `json:"covered_radius_miles"`
}

// ClassifyCircling scores a position/heading window for orbital motion.
// Returns nil when the window is too short or the evidence falls under
// the confidence or radius floor.
func ClassifyCircling(window []track.PositionSample, headings []float64, cfg Config) *Circling {
	if len(window) < cfg.MinCirclingSamples || len(headings) < cfg.MinCirclingSamples {
		return nil
	}

	points := make([]geo.Point, len(window))
	for i, s := range window {
		points[i] = geo.Point{Lat: s.Lat, Lon: s.Lon}
	}
	center := geo.Centroid(points)

	radii := make([]float64, len(points))
	for i, p := range points {
		radii[i] = geo.Distance(center, p)
	}
	avgRadius := geo.Mean(radii)
	if avgRadius <= 0 {
		return nil
	}

	// Radius consistency: a true orbit keeps a near-constant distance
	// from its center.
	radiusConsistency := 1 - math.Min(geo.Variance(radii)/(avgRadius*avgRadius), 1)

	deltas := headingDeltas(headings)
	if len(deltas) == 0 {
		return nil
	}

	// Turn consistency: fraction of steps turning the dominant direction.
	var left, right int
	var totalTurn float64
	for _, d := range deltas {
		totalTurn += d
		if d < 0 {
			left++
		} else if d > 0 {
			right++
		}
	}
	dominant := right
	if left > right {
		dominant = left
	}
	turnConsistency := float64(dominant) / float64(len(deltas))

	elapsed := window[len(window)-1].SeenAt.Sub(window[0].SeenAt)
	turnRate := 0.0
	if elapsed > 0 {
		turnRate = totalTurn / elapsed.Minutes()
	}

	closure := 1 - geo.Distance(points[0], points[len(points)-1])/avgRadius
	closure = math.Max(0, math.Min(1, closure))

	confidence := weightRadiusConsistency*radiusConsistency +
		weightTurnConsistency*turnConsistency +
		weightClosure*closure
	if math.Abs(turnRate) > turnRatePresentDegPerMin {
		confidence += weightTurnRate
	}

	if confidence < 0.5 || avgRadius <= cfg.MinCirclingRadiusMiles {
		return nil
	}

	direction := "right"
	if totalTurn < 0 {
		direction = "left"
	}

	return &Circling{
		Direction:         direction,
		RadiusMiles:       avgRadius,
		TurnRateDegPerMin: turnRate,
		Confidence:        confidence,
		Risk:              circlingRisk(avgRadius, math.Abs(turnRate)),
		Center:            center,
	}
}

// circlingRisk escalates for tight, fast orbits: those are what emergency
// holds and active surveillance look like.
func circlingRisk(radiusMiles, absTurnRate float64) string {
	switch {
	case radiusMiles < 2 && absTurnRate > 10:
		return RiskHigh
	case radiusMiles < 5 && absTurnRate > 6:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClassifySearchPattern scores a heading window for lawnmower-style
// search/survey motion: long straight legs joined by course reversals.
// Returns nil when the window is too short or either rate falls under its
// floor.
func ClassifySearchPattern(window []track.PositionSample, headings []float64, cfg Config) *SearchPattern {
	if len(window) < cfg.MinSearchSamples || len(headings) < cfg.MinSearchSamples {
		return nil
	}

	deltas := headingDeltas(headings)
	if len(deltas) < 2 {
		return nil
	}

	var reversals, straightLegs int
	for i := range deltas {
		if i >= 1 && math.Abs(deltas[i]+deltas[i-1]) >= cfg.ReversalDegrees {
			reversals++
		}
		if i >= 1 && math.Abs(deltas[i]) < cfg.StraightLegDegrees && math.Abs(deltas[i-1]) < cfg.StraightLegDegrees {
			straightLegs++
		}
	}

	reversalRate := float64(reversals) / float64(len(deltas))
	straightRate := float64(straightLegs) / float64(len(deltas))

	if reversalRate <= cfg.MinReversalRate || straightRate <= cfg.MinStraightLegRate {
		return nil
	}

	confidence := math.Min(1, reversalRate*2+straightRate)

	return &SearchPattern{
		ReversalRate:       reversalRate,
		StraightLegRate:    straightRate,
		Confidence:         confidence,
		CoveredRadiusMiles: boundingHalfDiagonal(window),
	}
}

// boundingHalfDiagonal reports the half-diagonal of the window's bounding
// box, a rough measure of the area a search pattern covers.
func boundingHalfDiagonal(window []track.PositionSample) float64 {
	minLat, maxLat := window[0].Lat, window[0].Lat
	minLon, maxLon := window[0].Lon, window[0].Lon
	for _, s := range window[1:] {
		minLat = math.Min(minLat, s.Lat)
		maxLat = math.Max(maxLat, s.Lat)
		minLon = math.Min(minLon, s.Lon)
		maxLon = math.Max(maxLon, s.Lon)
	}
	return geo.DistanceMiles(minLat, minLon, maxLat, maxLon) / 2
}

func headingDeltas(headings []float64) []float64 {
	if len(headings) < 2 {
		return nil
	}
	deltas := make([]float64, 0, len(headings)-1)
	for i := 1; i < len(headings); i++ {
		deltas = append(deltas, geo.HeadingDelta(headings[i-1], headings[i]))
	}
	return deltas
}
