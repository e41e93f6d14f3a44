package alert

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAllowTrackedCooldown verifies one alert per aircraft per window
func TestAllowTrackedCooldown(t *testing.T) {
	d := NewDeduper(DefaultDedupConfig())
	now := time.Now().UTC()

	assert.True(t, d.AllowTracked("abc123", now))
	assert.False(t, d.AllowTracked("abc123", now.Add(time.Minute)), "repeat within 24h suppressed")
	assert.False(t, d.AllowTracked("abc123", now.Add(23*time.Hour)), "still inside the window")
	assert.True(t, d.AllowTracked("abc123", now.Add(25*time.Hour)), "window elapsed")

	assert.True(t, d.AllowTracked("def456", now), "independent aircraft unaffected")
}

// TestAllowAnomalySameKindCooldown covers the property: 6 same-kind
// anomalies within the hour, only the first fires
func TestAllowAnomalySameKindCooldown(t *testing.T) {
	d := NewDeduper(DefaultDedupConfig())
	base := time.Now().UTC()

	fired := 0
	for i := 0; i < 6; i++ {
		if d.AllowAnomaly("abc123", KindCircling, SeverityMedium, base.Add(time.Duration(i)*8*time.Minute)) {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}

// TestAllowAnomalyHourlyCap covers the property: 6 distinct kinds within
// the hour and a cap of 5, only 5 fire
func TestAllowAnomalyHourlyCap(t *testing.T) {
	d := NewDeduper(DefaultDedupConfig())
	base := time.Now().UTC()

	fired := 0
	for i := 0; i < 6; i++ {
		kind := Kind(fmt.Sprintf("kind-%d", i))
		if d.AllowAnomaly("abc123", kind, SeverityHigh, base.Add(time.Duration(i)*time.Minute)) {
			fired++
		}
	}
	assert.Equal(t, 5, fired)
}

// TestAllowAnomalyLowSeveritySquelch verifies LOW anomalies are dropped
// once an aircraft has been noisy this hour
func TestAllowAnomalyLowSeveritySquelch(t *testing.T) {
	cfg := DefaultDedupConfig()
	cfg.LowSeverityThreshold = 2
	d := NewDeduper(cfg)
	base := time.Now().UTC()

	// Three distinct high-severity kinds fire first
	for i := 0; i < 3; i++ {
		assert.True(t, d.AllowAnomaly("abc123", Kind(fmt.Sprintf("kind-%d", i)), SeverityHigh, base.Add(time.Duration(i)*time.Minute)))
	}

	// A LOW anomaly of a fresh kind is now squelched; a HIGH one still fires
	assert.False(t, d.AllowAnomaly("abc123", "kind-low", SeverityLow, base.Add(4*time.Minute)))
	assert.True(t, d.AllowAnomaly("abc123", "kind-high", SeverityHigh, base.Add(5*time.Minute)))
}

// TestAllowAnomalyRollingHour verifies the cap window rolls
func TestAllowAnomalyRollingHour(t *testing.T) {
	cfg := DefaultDedupConfig()
	cfg.HourlyAnomalyCap = 2
	d := NewDeduper(cfg)
	base := time.Now().UTC()

	assert.True(t, d.AllowAnomaly("abc123", "kind-a", SeverityHigh, base))
	assert.True(t, d.AllowAnomaly("abc123", "kind-b", SeverityHigh, base.Add(time.Minute)))
	assert.False(t, d.AllowAnomaly("abc123", "kind-c", SeverityHigh, base.Add(2*time.Minute)), "cap reached")

	// Over an hour later the early fires have aged out
	assert.True(t, d.AllowAnomaly("abc123", "kind-c", SeverityHigh, base.Add(70*time.Minute)))
}

// TestPurgeBoundsMemory verifies expired entries are collected
func TestPurgeBoundsMemory(t *testing.T) {
	d := NewDeduper(DefaultDedupConfig())
	base := time.Now().UTC()

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("ac%04d", i)
		d.AllowTracked(id, base)
		d.AllowAnomaly(id, KindCircling, SeverityMedium, base)
	}
	assert.Equal(t, 100, d.EntryCount())

	d.Purge(base.Add(25 * time.Hour))
	assert.Equal(t, 0, d.EntryCount())
}

// TestNewAnomalyAlert verifies alert construction carries the event
func TestNewAnomalyAlert(t *testing.T) {
	now := time.Now().UTC()
	an := NewAnomaly("abc123", KindEmergencySquawk, SeverityCritical, nil, "squawk 7700", now)
	assert.NotEmpty(t, an.ID)

	a := NewAnomalyAlert(an, "Emergency squawk")
	assert.Equal(t, TypeAnomaly, a.Type)
	assert.Equal(t, an.ID, a.ID)
	assert.Equal(t, "abc123", a.AircraftID)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Equal(t, now, a.Timestamp)
}
