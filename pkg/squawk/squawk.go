// Package squawk classifies transponder emergency codes, separating
// genuine emergencies from the radio-failure code's chronic
// landing-approach false positives.
//
// The policy is deliberately asymmetric: 7600 is triggered automatically
// by avionics during ordinary approach and landing often enough to
// dominate alert volume, so it alone is suppressible, and only when every
// available signal points to an approach. The other codes are rare and
// specific enough that a false positive costs less than a missed real one,
// so they always pass.
package squawk

import (
	"fmt"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
)

// Recognized emergency transponder codes.
const (
	CodeHijack            = "7500"
	CodeRadioFailure      = "7600"
	CodeEmergency         = "7700"
	CodeMilitaryIntercept = "7777"
)

var codeLabels = map[string]string{
	CodeHijack:            "hijack",
	CodeRadioFailure:      "radio failure",
	CodeEmergency:         "general emergency",
	CodeMilitaryIntercept: "military intercept",
}

// Config holds the landing-approach suppression thresholds for 7600.
type Config struct {
	// AirportRadiusMiles is how close to a known airport an aircraft must
	// be for the position-based approach check.
	AirportRadiusMiles float64
	// MaxApproachAltitudeFt is the ceiling for any approach suppression.
	MaxApproachAltitudeFt float64
	// FallbackAltitudeFt and FallbackDescentRateFtMin gate the
	// conservative no-position fallback.
	FallbackAltitudeFt       float64
	FallbackDescentRateFtMin float64
	// MinApproachSpeedKt / MaxApproachSpeedKt bound plausible approach
	// ground speeds; a reported speed outside the band defeats
	// suppression.
	MinApproachSpeedKt float64
	MaxApproachSpeedKt float64
}

// DefaultConfig returns the production triage thresholds.
func DefaultConfig() Config {
	return Config{
		AirportRadiusMiles:       10,
		MaxApproachAltitudeFt:    10000,
		FallbackAltitudeFt:       5000,
		FallbackDescentRateFtMin: -500,
		MinApproachSpeedKt:       80,
		MaxApproachSpeedKt:       300,
	}
}

// Result is the triage verdict for one snapshot carrying an emergency
// code.
type Result struct {
	Code       string
	Label      string
	Suppressed bool
	Reason     string
}

// IsEmergency reports whether the code is one of the recognized emergency
// squawks.
func IsEmergency(code string) bool {
	_, ok := codeLabels[code]
	return ok
}

// Triage examines one snapshot. Returns nil when the snapshot carries no
// recognized emergency code. For 7600 the verdict is suppressed only when
// ALL available evidence points to a landing approach; every other code is
// always genuine.
func Triage(snap *adsb.Snapshot, airports []geo.Point, cfg Config) *Result {
	label, ok := codeLabels[snap.Squawk]
	if !ok {
		return nil
	}

	res := &Result{
		Code:   snap.Squawk,
		Label:  label,
		Reason: fmt.Sprintf("squawk %s (%s) from %s", snap.Squawk, label, snap.DisplayName()),
	}

	if snap.Squawk != CodeRadioFailure {
		return res
	}

	if looksLikeApproach(snap, airports, cfg) {
		res.Suppressed = true
		res.Reason = fmt.Sprintf("squawk 7600 from %s suppressed: landing approach profile", snap.DisplayName())
	}
	return res
}

// looksLikeApproach requires descending flight below the approach ceiling,
// plus either proximity to a known airport or, with no position at all, a
// steep descent at low altitude. A ground speed outside the approach band
// defeats the whole profile.
func looksLikeApproach(snap *adsb.Snapshot, airports []geo.Point, cfg Config) bool {
	if snap.VerticalRate == nil || *snap.VerticalRate >= 0 {
		return false
	}
	if snap.Altitude == nil || *snap.Altitude > cfg.MaxApproachAltitudeFt {
		return false
	}
	if snap.GroundSpeed != nil &&
		(*snap.GroundSpeed < cfg.MinApproachSpeedKt || *snap.GroundSpeed > cfg.MaxApproachSpeedKt) {
		return false
	}

	if snap.HasPosition() {
		for _, ap := range airports {
			if geo.DistanceMiles(*snap.Lat, *snap.Lon, ap.Lat, ap.Lon) <= cfg.AirportRadiusMiles {
				return true
			}
		}
		return false
	}

	// No position: only the conservative steep-descent fallback applies.
	return *snap.Altitude < cfg.FallbackAltitudeFt && *snap.VerticalRate < cfg.FallbackDescentRateFtMin
}
