// Package alert defines the notification event model and the cooldown
// registry consulted before anything is dispatched.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/flyby"
)

// Kind identifies an anomaly class.
type Kind string

const (
	KindEmergencySquawk Kind = "emergency-squawk"
	KindCircling        Kind = "circling"
	KindSearchPattern   Kind = "search-pattern"
	KindFormation       Kind = "formation"
	KindRestrictedArea  Kind = "restricted-area"
	KindFeedOutage      Kind = "feed-outage"
)

// Severity grades an anomaly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Anomaly is an ephemeral event produced by a classifier and consumed
// immediately by the deduplicator. Not persisted by the core.
type Anomaly struct {
	ID         string         `json:"id"`
	AircraftID string         `json:"aircraft_id"`
	Kind       Kind           `json:"kind"`
	Severity   Severity       `json:"severity"`
	Snapshot   *adsb.Snapshot `json:"snapshot,omitempty"`
	Reason     string         `json:"reason"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAnomaly creates an anomaly event with a generated id.
func NewAnomaly(aircraftID string, kind Kind, severity Severity, snap *adsb.Snapshot, reason string, now time.Time) Anomaly {
	return Anomaly{
		ID:         uuid.New().String(),
		AircraftID: aircraftID,
		Kind:       kind,
		Severity:   severity,
		Snapshot:   snap,
		Reason:     reason,
		Timestamp:  now,
	}
}

// Type distinguishes the two alert families the dedup policies cover.
type Type string

const (
	// TypeTracked is a watched-aircraft flyby alert.
	TypeTracked Type = "tracked"
	// TypeAnomaly is a behavioral or squawk anomaly alert.
	TypeAnomaly Type = "anomaly"
)

// Alert is the unit handed to notification sinks after deduplication.
type Alert struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	AircraftID string         `json:"aircraft_id"`
	Subject    string         `json:"subject"`
	Reason     string         `json:"reason"`
	Severity   Severity       `json:"severity,omitempty"`
	Snapshot   *adsb.Snapshot `json:"snapshot,omitempty"`
	Flyby      *flyby.Event   `json:"flyby,omitempty"`
	Anomaly    *Anomaly       `json:"anomaly,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewTrackedAlert builds the notification for a concluded flyby.
func NewTrackedAlert(ev flyby.Event, label, subject string) Alert {
	return Alert{
		ID:         uuid.New().String(),
		Type:       TypeTracked,
		AircraftID: ev.ID,
		Subject:    subject,
		Reason:     label,
		Snapshot:   ev.ClosestSnapshot,
		Flyby:      &ev,
		Timestamp:  ev.ConcludedAt,
	}
}

// NewAnomalyAlert builds the notification for an anomaly event.
func NewAnomalyAlert(an Anomaly, subject string) Alert {
	return Alert{
		ID:         an.ID,
		Type:       TypeAnomaly,
		AircraftID: an.AircraftID,
		Subject:    subject,
		Reason:     an.Reason,
		Severity:   an.Severity,
		Snapshot:   an.Snapshot,
		Anomaly:    &an,
		Timestamp:  an.Timestamp,
	}
}
