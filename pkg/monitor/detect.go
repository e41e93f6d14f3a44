package monitor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/config"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/pattern"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/squawk"
)

// minFormationSpeedKt filters out taxiing and parked aircraft, which
// otherwise pair up on every ramp.
const minFormationSpeedKt = 60

// detectFormations scans the cycle's snapshots for pairs flying close
// laterally and vertically on near-identical headings. The pair id is the
// sorted hex join so the cooldown covers both orderings.
func detectFormations(snaps []*adsb.Snapshot, cfg config.FormationConfig, now time.Time) []alert.Anomaly {
	var candidates []*adsb.Snapshot
	for _, s := range snaps {
		if !s.HasPosition() || s.Track == nil || s.Altitude == nil {
			continue
		}
		if s.GroundSpeed == nil || *s.GroundSpeed < minFormationSpeedKt {
			continue
		}
		candidates = append(candidates, s)
	}

	var out []alert.Anomaly
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if math.Abs(*a.Altitude-*b.Altitude) > cfg.MaxVerticalFt {
				continue
			}
			if math.Abs(geo.HeadingDelta(*a.Track, *b.Track)) > cfg.MaxHeadingDeltaDeg {
				continue
			}
			lateral := geo.DistanceMiles(*a.Lat, *a.Lon, *b.Lat, *b.Lon)
			if lateral > cfg.MaxLateralMiles {
				continue
			}
			pair := []string{a.ID(), b.ID()}
			sort.Strings(pair)
			reason := fmt.Sprintf("formation flight: %s and %s %.2f mi apart, headings within %.0f deg",
				a.DisplayName(), b.DisplayName(), lateral, cfg.MaxHeadingDeltaDeg)
			out = append(out, alert.NewAnomaly(pair[0]+"+"+pair[1], alert.KindFormation,
				alert.SeverityMedium, a, reason, now))
		}
	}
	return out
}

// detectZoneIncursion checks a positioned snapshot against the configured
// restricted areas. Returns nil when the aircraft is clear of all zones.
func detectZoneIncursion(snap *adsb.Snapshot, zones []config.ZoneConfig, now time.Time) *alert.Anomaly {
	if !snap.HasPosition() {
		return nil
	}
	pos := geo.Point{Lat: *snap.Lat, Lon: *snap.Lon}
	for _, z := range zones {
		if geo.Distance(pos, z.Center()) > z.RadiusMiles {
			continue
		}
		if !inAltitudeBand(snap.Altitude, z.FloorFt, z.CeilingFt) {
			continue
		}
		reason := fmt.Sprintf("%s inside restricted area %q", snap.DisplayName(), z.Name)
		an := alert.NewAnomaly(snap.ID(), alert.KindRestrictedArea, alert.SeverityHigh, snap, reason, now)
		return &an
	}
	return nil
}

// inAltitudeBand applies the zone's altitude band. A missing altitude only
// matches a zone with no band configured; without a reading there is no
// basis to place the aircraft inside a bounded slice of airspace.
func inAltitudeBand(altitude *float64, floorFt, ceilingFt float64) bool {
	if floorFt <= 0 && ceilingFt <= 0 {
		return true
	}
	if altitude == nil {
		return false
	}
	if *altitude < floorFt {
		return false
	}
	if ceilingFt > 0 && *altitude > ceilingFt {
		return false
	}
	return true
}

// squawkSeverity grades an emergency code. Hijack and intercept are the
// codes a watcher must never miss.
func squawkSeverity(code string) alert.Severity {
	switch code {
	case squawk.CodeHijack, squawk.CodeMilitaryIntercept:
		return alert.SeverityCritical
	default:
		return alert.SeverityHigh
	}
}

// circlingSeverity maps the classifier's risk grade onto alert severity.
func circlingSeverity(risk string) alert.Severity {
	switch risk {
	case pattern.RiskHigh:
		return alert.SeverityHigh
	case pattern.RiskMedium:
		return alert.SeverityMedium
	default:
		return alert.SeverityLow
	}
}
