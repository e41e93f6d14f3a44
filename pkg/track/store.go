// Package track maintains the per-aircraft rolling history the classifiers
// read from. Memory per aircraft is bounded by fixed-capacity rings;
// aircraft unseen past the staleness window are evicted wholesale.
package track

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
)

// DefaultPositionCapacity bounds the position ring per aircraft. At a 15s
// poll interval this covers roughly half an hour of history.
const DefaultPositionCapacity = 120

// PositionSample is one observed position with the fields the pattern
// classifier needs alongside it.
type PositionSample struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Altitude *float64  `json:"altitude,omitempty"`
	SeenAt   time.Time `json:"seen_at"`
}

// ring is a fixed-capacity append-only buffer. Oldest entries are silently
// overwritten once full.
type ring[T any] struct {
	buf   []T
	head  int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// last returns up to n most recent entries, oldest first.
func (r *ring[T]) last(n int) []T {
	if n > r.count {
		n = r.count
	}
	out := make([]T, 0, n)
	start := (r.head - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

func (r *ring[T]) len() int { return r.count }

// Record is the rolling history for one aircraft.
type Record struct {
	ID        string
	positions *ring[PositionSample]
	altitudes *ring[float64]
	speeds    *ring[float64]
	headings  *ring[float64]
	callsigns map[string]struct{}
	squawks   map[string]struct{}
	FirstSeen time.Time
	LastSeen  time.Time
	Latest    *adsb.Snapshot
}

// Callsigns returns every callsign observed for this aircraft.
func (rec *Record) Callsigns() []string {
	out := make([]string, 0, len(rec.callsigns))
	for cs := range rec.callsigns {
		out = append(out, cs)
	}
	return out
}

// Squawks returns every squawk code observed for this aircraft.
func (rec *Record) Squawks() []string {
	out := make([]string, 0, len(rec.squawks))
	for sq := range rec.squawks {
		out = append(out, sq)
	}
	return out
}

// PositionCount returns how many position samples are held.
func (rec *Record) PositionCount() int { return rec.positions.len() }

// Store holds track records keyed by aircraft id. All methods are safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	tracks   map[string]*Record
	capacity int

	activeGauge prometheus.Gauge
}

// NewStore creates a store with the given position ring capacity. A
// capacity below 1 falls back to DefaultPositionCapacity.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultPositionCapacity
	}
	return &Store{
		tracks:   make(map[string]*Record),
		capacity: capacity,
	}
}

// SetActiveGauge registers a gauge updated with the live track count.
func (s *Store) SetActiveGauge(g prometheus.Gauge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeGauge = g
	g.Set(float64(len(s.tracks)))
}

// Update appends the snapshot's present fields to the aircraft's rings and
// refreshes last-seen. Missing fields leave their rings untouched.
func (s *Store) Update(snap *adsb.Snapshot) {
	id := snap.ID()
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tracks[id]
	if !ok {
		rec = &Record{
			ID:        id,
			positions: newRing[PositionSample](s.capacity),
			altitudes: newRing[float64](s.capacity),
			speeds:    newRing[float64](s.capacity),
			headings:  newRing[float64](s.capacity),
			callsigns: make(map[string]struct{}),
			squawks:   make(map[string]struct{}),
			FirstSeen: snap.SeenAt,
		}
		s.tracks[id] = rec
		if s.activeGauge != nil {
			s.activeGauge.Set(float64(len(s.tracks)))
		}
	}

	rec.LastSeen = snap.SeenAt
	rec.Latest = snap

	if snap.HasPosition() {
		rec.positions.push(PositionSample{
			Lat:      *snap.Lat,
			Lon:      *snap.Lon,
			Altitude: snap.Altitude,
			SeenAt:   snap.SeenAt,
		})
	}
	if snap.Altitude != nil {
		rec.altitudes.push(*snap.Altitude)
	}
	if snap.GroundSpeed != nil {
		rec.speeds.push(*snap.GroundSpeed)
	}
	if snap.Track != nil {
		rec.headings.push(*snap.Track)
	}
	if snap.Callsign != "" {
		rec.callsigns[snap.Callsign] = struct{}{}
	}
	if snap.Squawk != "" {
		rec.squawks[snap.Squawk] = struct{}{}
	}
}

// EvictStale removes every track whose last-seen predates now-staleness.
// Called once per poll cycle before classification so classifiers never
// see dead aircraft. Returns the evicted ids.
func (s *Store) EvictStale(now time.Time, staleness time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-staleness)
	var evicted []string
	for id, rec := range s.tracks {
		if rec.LastSeen.Before(cutoff) {
			delete(s.tracks, id)
			evicted = append(evicted, id)
		}
	}
	if s.activeGauge != nil && len(evicted) > 0 {
		s.activeGauge.Set(float64(len(s.tracks)))
	}
	return evicted
}

// Window returns the most recent n position samples for the aircraft,
// oldest first, fewer when insufficient history exists. A short window is
// "insufficient evidence" to classifiers, never a negative signal.
func (s *Store) Window(id string, n int) []PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tracks[id]
	if !ok {
		return nil
	}
	return rec.positions.last(n)
}

// Headings returns the most recent n heading samples, oldest first.
func (s *Store) Headings(id string, n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tracks[id]
	if !ok {
		return nil
	}
	return rec.headings.last(n)
}

// Get returns the record for an aircraft id.
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tracks[id]
	return rec, ok
}

// All returns every live record.
func (s *Store) All() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.tracks))
	for _, rec := range s.tracks {
		out = append(out, rec)
	}
	return out
}

// Count returns the number of live tracks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}
