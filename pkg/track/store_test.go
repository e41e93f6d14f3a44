package track

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
)

func f64(v float64) *float64 { return &v }

func snapshotAt(hex string, lat, lon float64, ts time.Time) *adsb.Snapshot {
	return &adsb.Snapshot{Hex: hex, Lat: f64(lat), Lon: f64(lon), SeenAt: ts}
}

// TestStoreUpdatePartialFields verifies missing fields leave rings unchanged
func TestStoreUpdatePartialFields(t *testing.T) {
	s := NewStore(10)
	now := time.Now().UTC()

	s.Update(&adsb.Snapshot{
		Hex: "abc123", Lat: f64(47.0), Lon: f64(-122.0),
		Altitude: f64(10000), GroundSpeed: f64(250), Track: f64(90),
		Callsign: "UAL1", Squawk: "1200", SeenAt: now,
	})

	// Second update omits position and speed
	s.Update(&adsb.Snapshot{
		Hex: "ABC123", Altitude: f64(10500), SeenAt: now.Add(15 * time.Second),
	})

	rec, ok := s.Get("abc123")
	require.True(t, ok, "ids must match case-insensitively")
	assert.Equal(t, 1, rec.PositionCount(), "absent position must not append")
	assert.Len(t, rec.altitudes.last(10), 2)
	assert.Len(t, rec.speeds.last(10), 1)
	assert.Equal(t, now.Add(15*time.Second), rec.LastSeen)
	assert.Equal(t, []string{"UAL1"}, rec.Callsigns())
	assert.Equal(t, []string{"1200"}, rec.Squawks())
}

// TestStoreRingCapacity verifies memory stays bounded and oldest samples drop
func TestStoreRingCapacity(t *testing.T) {
	s := NewStore(5)
	base := time.Now().UTC()

	for i := 0; i < 12; i++ {
		s.Update(snapshotAt("abc123", 47.0+float64(i)*0.01, -122.0, base.Add(time.Duration(i)*time.Second)))
	}

	window := s.Window("abc123", 100)
	require.Len(t, window, 5, "ring capacity bounds history")

	// Oldest first: samples 7..11
	assert.InDelta(t, 47.07, window[0].Lat, 1e-9)
	assert.InDelta(t, 47.11, window[4].Lat, 1e-9)
}

// TestStoreWindowShortHistory verifies a short window is returned as-is
func TestStoreWindowShortHistory(t *testing.T) {
	s := NewStore(10)
	now := time.Now().UTC()
	s.Update(snapshotAt("abc123", 47.0, -122.0, now))
	s.Update(snapshotAt("abc123", 47.1, -122.0, now.Add(time.Second)))

	assert.Len(t, s.Window("abc123", 10), 2)
	assert.Nil(t, s.Window("unknown", 10))
}

// TestStoreEvictStale verifies eviction by last-seen timestamp
func TestStoreEvictStale(t *testing.T) {
	s := NewStore(10)
	base := time.Now().UTC()

	s.Update(snapshotAt("old111", 47.0, -122.0, base.Add(-2*time.Minute)))
	s.Update(snapshotAt("new222", 47.0, -122.0, base.Add(-10*time.Second)))

	evicted := s.EvictStale(base, time.Minute)
	assert.Equal(t, []string{"old111"}, evicted)
	assert.Equal(t, 1, s.Count())

	_, ok := s.Get("old111")
	assert.False(t, ok)
	_, ok = s.Get("new222")
	assert.True(t, ok)
}

// TestStoreHeadings verifies heading ring ordering
func TestStoreHeadings(t *testing.T) {
	s := NewStore(10)
	now := time.Now().UTC()
	for i, h := range []float64{10, 20, 30, 40} {
		s.Update(&adsb.Snapshot{Hex: "abc123", Track: f64(h), SeenAt: now.Add(time.Duration(i) * time.Second)})
	}

	headings := s.Headings("abc123", 3)
	assert.Equal(t, []float64{20, 30, 40}, headings)
}

// TestStoreConcurrentUpdate exercises the store under concurrent writers
func TestStoreConcurrentUpdate(t *testing.T) {
	s := NewStore(20)
	now := time.Now().UTC()
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				s.Update(snapshotAt(fmt.Sprintf("ac%04d", g), 47.0, -122.0, now.Add(time.Duration(i)*time.Second)))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	assert.Equal(t, 4, s.Count())
	assert.Len(t, s.All(), 4)
}
