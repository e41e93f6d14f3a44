package alert

import (
	"sync"
	"time"
)

// DedupConfig holds the cooldown and rate-cap windows.
type DedupConfig struct {
	// TrackedCooldown suppresses repeat flyby alerts per aircraft id,
	// regardless of kind. One notable pass per day is the useful unit.
	TrackedCooldown time.Duration
	// AnomalyCooldown suppresses repeats per (aircraft, kind) pair.
	AnomalyCooldown time.Duration
	// HourlyAnomalyCap bounds total anomaly alerts per aircraft per
	// rolling hour.
	HourlyAnomalyCap int
	// LowSeverityThreshold is the per-hour fire count past which further
	// LOW-severity anomalies from the same aircraft are dropped, so one
	// aircraft with chronically erratic ADS-B cannot saturate the
	// channel.
	LowSeverityThreshold int
}

// DefaultDedupConfig returns the production cooldown windows.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		TrackedCooldown:      24 * time.Hour,
		AnomalyCooldown:      time.Hour,
		HourlyAnomalyCap:     5,
		LowSeverityThreshold: 2,
	}
}

// Deduper is the cooldown registry consulted before every notification.
// Safe for concurrent use.
type Deduper struct {
	mu  sync.Mutex
	cfg DedupConfig

	tracked   map[string]time.Time   // aircraft id -> last tracked alert
	anomalies map[string]time.Time   // aircraft id + kind -> last anomaly alert
	hourly    map[string][]time.Time // aircraft id -> anomaly fire times, rolling hour
}

// NewDeduper creates a deduplicator with the given windows.
func NewDeduper(cfg DedupConfig) *Deduper {
	return &Deduper{
		cfg:       cfg,
		tracked:   make(map[string]time.Time),
		anomalies: make(map[string]time.Time),
		hourly:    make(map[string][]time.Time),
	}
}

// AllowTracked reports whether a flyby alert for the aircraft may fire,
// recording the fire time when it may.
func (d *Deduper) AllowTracked(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.tracked[id]; ok && now.Sub(last) < d.cfg.TrackedCooldown {
		return false
	}
	d.tracked[id] = now
	return true
}

// AllowAnomaly reports whether an anomaly alert may fire, applying the
// per-kind cooldown, the hourly cap, and the low-severity squelch, and
// recording the fire when allowed.
func (d *Deduper) AllowAnomaly(id string, kind Kind, severity Severity, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := id + ":" + string(kind)
	if last, ok := d.anomalies[key]; ok && now.Sub(last) < d.cfg.AnomalyCooldown {
		return false
	}

	fires := pruneBefore(d.hourly[id], now.Add(-time.Hour))
	d.hourly[id] = fires

	if len(fires) >= d.cfg.HourlyAnomalyCap {
		return false
	}
	if severity == SeverityLow && len(fires) > d.cfg.LowSeverityThreshold {
		return false
	}

	d.anomalies[key] = now
	d.hourly[id] = append(fires, now)
	return true
}

// Purge garbage-collects entries older than the longest configured
// window, bounding registry memory. Called periodically by the poll loop.
func (d *Deduper) Purge(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	longest := d.cfg.TrackedCooldown
	if d.cfg.AnomalyCooldown > longest {
		longest = d.cfg.AnomalyCooldown
	}
	if time.Hour > longest {
		longest = time.Hour
	}
	cutoff := now.Add(-longest)

	for id, last := range d.tracked {
		if last.Before(cutoff) {
			delete(d.tracked, id)
		}
	}
	for key, last := range d.anomalies {
		if last.Before(cutoff) {
			delete(d.anomalies, key)
		}
	}
	for id, fires := range d.hourly {
		kept := pruneBefore(fires, now.Add(-time.Hour))
		if len(kept) == 0 {
			delete(d.hourly, id)
		} else {
			d.hourly[id] = kept
		}
	}
}

// EntryCount returns the number of live cooldown entries.
func (d *Deduper) EntryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tracked) + len(d.anomalies)
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
