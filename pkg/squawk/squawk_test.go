package squawk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
)

var seatac = geo.Point{Lat: 47.4502, Lon: -122.3088}

func f64(v float64) *float64 { return &v }

func emergencySnapshot(code string) *adsb.Snapshot {
	return &adsb.Snapshot{Hex: "abc123", Callsign: "TST100", Squawk: code}
}

// TestTriageNonEmergencyCodes verifies ordinary squawks produce no result
func TestTriageNonEmergencyCodes(t *testing.T) {
	for _, code := range []string{"", "1200", "2000", "7601", "0234"} {
		assert.Nil(t, Triage(emergencySnapshot(code), nil, DefaultConfig()), "code %q", code)
	}
}

// TestTriageAlwaysGenuineCodes verifies 7500/7700/7777 pass under any
// kinematic conditions, even a textbook landing approach
func TestTriageAlwaysGenuineCodes(t *testing.T) {
	for _, code := range []string{CodeHijack, CodeEmergency, CodeMilitaryIntercept} {
		t.Run(code, func(t *testing.T) {
			snap := emergencySnapshot(code)
			// Descending, low, slow, right on top of the airport
			snap.Lat = f64(seatac.Lat + 0.02)
			snap.Lon = f64(seatac.Lon)
			snap.Altitude = f64(3000)
			snap.VerticalRate = f64(-600)
			snap.GroundSpeed = f64(140)

			res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
			require.NotNil(t, res)
			assert.False(t, res.Suppressed)
			assert.Equal(t, code, res.Code)
		})
	}
}

// TestTriageRadioFailureApproachSuppressed covers the canonical property:
// 7600 descending at 3,000 ft near a known airport is suppressed
func TestTriageRadioFailureApproachSuppressed(t *testing.T) {
	snap := emergencySnapshot(CodeRadioFailure)
	snap.Lat = f64(seatac.Lat + 0.05)
	snap.Lon = f64(seatac.Lon)
	snap.Altitude = f64(3000)
	snap.VerticalRate = f64(-600)

	res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
	require.NotNil(t, res)
	assert.True(t, res.Suppressed)
	assert.Contains(t, res.Reason, "landing approach")
}

// TestTriageRadioFailureClimbing verifies the same snapshot climbing is
// genuine
func TestTriageRadioFailureClimbing(t *testing.T) {
	snap := emergencySnapshot(CodeRadioFailure)
	snap.Lat = f64(seatac.Lat + 0.05)
	snap.Lon = f64(seatac.Lon)
	snap.Altitude = f64(3000)
	snap.VerticalRate = f64(600)

	res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
	require.NotNil(t, res)
	assert.False(t, res.Suppressed)
}

// TestTriageRadioFailureMissingEvidence verifies absent fields never count
// toward suppression
func TestTriageRadioFailureMissingEvidence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*adsb.Snapshot)
	}{
		{name: "no vertical rate", mutate: func(s *adsb.Snapshot) { s.VerticalRate = nil }},
		{name: "no altitude", mutate: func(s *adsb.Snapshot) { s.Altitude = nil }},
		{name: "too high", mutate: func(s *adsb.Snapshot) { s.Altitude = f64(15000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emergencySnapshot(CodeRadioFailure)
			snap.Lat = f64(seatac.Lat)
			snap.Lon = f64(seatac.Lon)
			snap.Altitude = f64(3000)
			snap.VerticalRate = f64(-600)
			tt.mutate(snap)

			res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
			require.NotNil(t, res)
			assert.False(t, res.Suppressed)
		})
	}
}

// TestTriageRadioFailureFarFromAirport verifies descent far from every
// known airport is genuine
func TestTriageRadioFailureFarFromAirport(t *testing.T) {
	snap := emergencySnapshot(CodeRadioFailure)
	snap.Lat = f64(45.0) // ~170 miles south
	snap.Lon = f64(-122.3)
	snap.Altitude = f64(3000)
	snap.VerticalRate = f64(-600)

	res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
	require.NotNil(t, res)
	assert.False(t, res.Suppressed)
}

// TestTriageRadioFailureNoPositionFallback verifies the conservative
// fallback: no position, low altitude, steep descent
func TestTriageRadioFailureNoPositionFallback(t *testing.T) {
	snap := emergencySnapshot(CodeRadioFailure)
	snap.Altitude = f64(3000)
	snap.VerticalRate = f64(-700)

	res := Triage(snap, nil, DefaultConfig())
	require.NotNil(t, res)
	assert.True(t, res.Suppressed)

	// Shallow descent does not satisfy the fallback
	snap.VerticalRate = f64(-200)
	res = Triage(snap, nil, DefaultConfig())
	require.NotNil(t, res)
	assert.False(t, res.Suppressed)
}

// TestTriageRadioFailureSpeedBand verifies a ground speed outside the
// approach band defeats suppression
func TestTriageRadioFailureSpeedBand(t *testing.T) {
	tests := []struct {
		name       string
		speed      float64
		suppressed bool
	}{
		{name: "approach speed", speed: 140, suppressed: true},
		{name: "too slow", speed: 40, suppressed: false},
		{name: "too fast", speed: 420, suppressed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emergencySnapshot(CodeRadioFailure)
			snap.Lat = f64(seatac.Lat)
			snap.Lon = f64(seatac.Lon)
			snap.Altitude = f64(3000)
			snap.VerticalRate = f64(-600)
			snap.GroundSpeed = f64(tt.speed)

			res := Triage(snap, []geo.Point{seatac}, DefaultConfig())
			require.NotNil(t, res)
			assert.Equal(t, tt.suppressed, res.Suppressed)
		})
	}
}

// TestIsEmergency verifies the code set
func TestIsEmergency(t *testing.T) {
	assert.True(t, IsEmergency("7500"))
	assert.True(t, IsEmergency("7600"))
	assert.True(t, IsEmergency("7700"))
	assert.True(t, IsEmergency("7777"))
	assert.False(t, IsEmergency("1200"))
	assert.False(t, IsEmergency(""))
}
