// Package flyby tracks watched aircraft from first sighting through
// departure or timeout, remembering the single closest approach to the
// point of interest so exactly one maximally informative alert fires per
// pass.
package flyby

import (
	"sync"
	"time"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
)

// Outcome describes why a flyby concluded.
type Outcome string

const (
	// OutcomeApproachDeparted fires when the aircraft passed closer than
	// its first sighting before leaving the feed.
	OutcomeApproachDeparted Outcome = "approached and departed"
	// OutcomeDeparted fires when the trailing distances were increasing
	// as the aircraft left the feed.
	OutcomeDeparted Outcome = "departed"
	// OutcomeSingleSighting fires when the aircraft vanished before a
	// trend could be established.
	OutcomeSingleSighting Outcome = "single sighting"
	// OutcomeWatchTimeout fires when an aircraft loitered in range past
	// the watch timeout, bounding worst-case alert latency.
	OutcomeWatchTimeout Outcome = "watch timeout"
)

// Config holds the empirically tuned trend thresholds. They were measured
// against live traffic rather than derived, so they stay configurable.
type Config struct {
	// ApproachDeltaMiles is how much closer than the first sighting the
	// closest approach must be to count as "approached".
	ApproachDeltaMiles float64
	// TrendWindow is how many trailing distance samples the departure
	// check compares.
	TrendWindow int
	// WatchTimeout forces an alert for aircraft still visible after this
	// long.
	WatchTimeout time.Duration
}

// DefaultConfig returns the production trend thresholds.
func DefaultConfig() Config {
	return Config{
		ApproachDeltaMiles: 2.0,
		TrendWindow:        3,
		WatchTimeout:       30 * time.Minute,
	}
}

// Record is the in-flight state for one watched aircraft's visit. It
// exists only between first sighting and alert/timeout.
type Record struct {
	ID              string
	FirstSeen       time.Time
	Distances       []float64
	Closest         float64
	ClosestSnapshot *adsb.Snapshot
}

// Event is the conclusion of a flyby, carrying the closest-approach sample
// the alert reports on.
type Event struct {
	ID              string
	Outcome         Outcome
	FirstSeen       time.Time
	ConcludedAt     time.Time
	ClosestMiles    float64
	FirstMiles      float64
	LastMiles       float64
	Samples         int
	ClosestSnapshot *adsb.Snapshot
}

// Tracker owns the flyby records for all watched aircraft. Safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*Record
}

// NewTracker creates a tracker with the given trend configuration.
func NewTracker(cfg Config) *Tracker {
	if cfg.TrendWindow < 2 {
		cfg.TrendWindow = 2
	}
	return &Tracker{cfg: cfg, records: make(map[string]*Record)}
}

// Observe records one sighting of a watched aircraft at the given distance
// from the point of interest. Creates the record on first sighting and
// keeps the closest-approach snapshot current.
func (t *Tracker) Observe(snap *adsb.Snapshot, distanceMiles float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := snap.ID()
	rec, ok := t.records[id]
	if !ok {
		rec = &Record{
			ID:              id,
			FirstSeen:       snap.SeenAt,
			Closest:         distanceMiles,
			ClosestSnapshot: snap,
		}
		t.records[id] = rec
	}

	rec.Distances = append(rec.Distances, distanceMiles)
	if distanceMiles < rec.Closest {
		rec.Closest = distanceMiles
		rec.ClosestSnapshot = snap
	}
}

// Tracking reports whether a flyby record exists for the aircraft.
func (t *Tracker) Tracking(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[id]
	return ok
}

// ActiveCount returns the number of in-flight flyby records.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Sweep runs after all of a cycle's snapshots have been applied. Records
// whose id was absent from the cycle concluded their pass: the aircraft
// left the feed. Records still visible but tracked past the watch timeout
// conclude forcibly. Every concluded record is destroyed; those whose
// distance trend warrants an alert are returned.
func (t *Tracker) Sweep(seen map[string]bool, now time.Time) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []Event
	for id, rec := range t.records {
		if seen[id] {
			if now.Sub(rec.FirstSeen) >= t.cfg.WatchTimeout {
				events = append(events, rec.conclude(OutcomeWatchTimeout, now))
				delete(t.records, id)
			}
			continue
		}

		delete(t.records, id)
		if outcome, ok := t.departureOutcome(rec); ok {
			events = append(events, rec.conclude(outcome, now))
		}
	}
	return events
}

// departureOutcome applies the trend heuristic: a pass is worth alerting
// on when the aircraft approached (closest meaningfully under the first
// sighting), when it was departing (trailing distances increasing), or
// when too few samples exist to judge either way.
func (t *Tracker) departureOutcome(rec *Record) (Outcome, bool) {
	if len(rec.Distances) < 2 {
		return OutcomeSingleSighting, true
	}

	first := rec.Distances[0]
	if rec.Closest < first-t.cfg.ApproachDeltaMiles {
		return OutcomeApproachDeparted, true
	}

	tail := rec.Distances
	if len(tail) > t.cfg.TrendWindow {
		tail = tail[len(tail)-t.cfg.TrendWindow:]
	}
	departing := true
	for i := 1; i < len(tail); i++ {
		if tail[i] <= tail[i-1] {
			departing = false
			break
		}
	}
	if departing {
		return OutcomeDeparted, true
	}

	return "", false
}

func (rec *Record) conclude(outcome Outcome, now time.Time) Event {
	return Event{
		ID:              rec.ID,
		Outcome:         outcome,
		FirstSeen:       rec.FirstSeen,
		ConcludedAt:     now,
		ClosestMiles:    rec.Closest,
		FirstMiles:      rec.Distances[0],
		LastMiles:       rec.Distances[len(rec.Distances)-1],
		Samples:         len(rec.Distances),
		ClosestSnapshot: rec.ClosestSnapshot,
	}
}
