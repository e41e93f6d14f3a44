// Package adsb defines the aircraft snapshot model and the feed client that
// pulls periodic state batches from a dump1090-style receiver.
package adsb

import (
	"encoding/json"
	"strings"
	"time"
)

// Snapshot is one poll cycle's reported state for one aircraft. Every
// kinematic field is optional because real feeds omit fields
// inconsistently; a nil pointer means the receiver did not report the
// field this cycle, which is never the same as zero.
type Snapshot struct {
	Hex          string    `json:"hex"`
	Callsign     string    `json:"flight,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	Altitude     *float64  `json:"alt_baro,omitempty"`  // feet
	GroundSpeed  *float64  `json:"gs,omitempty"`        // knots
	Track        *float64  `json:"track,omitempty"`     // degrees 0-360
	VerticalRate *float64  `json:"baro_rate,omitempty"` // ft/min
	Squawk       string    `json:"squawk,omitempty"`
	SeenAt       time.Time `json:"-"`
}

// ID returns the aircraft identity key: the transponder hex address,
// lowercased. Feed and watch-list ids are matched through this.
func (s *Snapshot) ID() string {
	return strings.ToLower(strings.TrimSpace(s.Hex))
}

// HasPosition reports whether both coordinates were present this cycle.
func (s *Snapshot) HasPosition() bool {
	return s.Lat != nil && s.Lon != nil
}

// DisplayName returns the callsign when one was reported, otherwise the
// hex id.
func (s *Snapshot) DisplayName() string {
	if cs := strings.TrimSpace(s.Callsign); cs != "" {
		return cs
	}
	return s.ID()
}

// rawAircraft mirrors the aircraft.json wire object. alt_baro needs
// special handling: dump1090 reports the string "ground" for aircraft on
// the surface, which decodes as "altitude absent" here.
type rawAircraft struct {
	Hex          string          `json:"hex"`
	Flight       string          `json:"flight"`
	Lat          *float64        `json:"lat"`
	Lon          *float64        `json:"lon"`
	AltBaro      json.RawMessage `json:"alt_baro"`
	GroundSpeed  *float64        `json:"gs"`
	Track        *float64        `json:"track"`
	VerticalRate *float64        `json:"baro_rate"`
	Squawk       string          `json:"squawk"`
}

func (r *rawAircraft) toSnapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		Hex:          strings.ToLower(strings.TrimSpace(r.Hex)),
		Callsign:     strings.TrimSpace(r.Flight),
		Lat:          r.Lat,
		Lon:          r.Lon,
		GroundSpeed:  r.GroundSpeed,
		Track:        r.Track,
		VerticalRate: r.VerticalRate,
		Squawk:       strings.TrimSpace(r.Squawk),
		SeenAt:       now,
	}

	if len(r.AltBaro) > 0 {
		var alt float64
		if err := json.Unmarshal(r.AltBaro, &alt); err == nil {
			snap.Altitude = &alt
		}
		// non-numeric alt_baro ("ground") stays absent
	}

	return snap
}
