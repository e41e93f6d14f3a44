// Package monitor runs the poll loop that drives the whole pipeline:
// fetch a feed snapshot, update tracks, observe watched aircraft, classify
// behavior, triage squawks, deduplicate, and hand alerts to the sinks.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/config"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/flyby"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/pattern"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/squawk"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/track"
)

const (
	// analysisSamples is how much trailing history the pattern
	// classifiers see, about six minutes at the default poll cadence.
	analysisSamples = 24
	// recentAlertCap bounds the in-memory alert ring served by the API.
	recentAlertCap = 100
	// feedAircraftID keys feed-outage anomalies in the deduper.
	feedAircraftID = "feed"
)

// Enqueuer accepts alerts for delivery. Satisfied by notify.Dispatcher.
type Enqueuer interface {
	Enqueue(a alert.Alert) bool
}

// Status is the operational summary served by the API.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPoll        time.Time `json:"last_poll,omitempty"`
	Polls           uint64    `json:"polls"`
	FetchErrors     uint64    `json:"fetch_errors"`
	ConsecutiveFail int       `json:"consecutive_failures"`
	AircraftSeen    int       `json:"aircraft_seen"`
	ActiveTracks    int       `json:"active_tracks"`
	ActiveFlybys    int       `json:"active_flybys"`
	WatchlistSize   int       `json:"watchlist_size"`
	AlertsEmitted   uint64    `json:"alerts_emitted"`
}

// Monitor owns the poll loop and the detection pipeline state.
type Monitor struct {
	cfg        *config.Config
	feed       *adsb.FeedClient
	store      *track.Store
	flybys     *flyby.Tracker
	deduper    *alert.Deduper
	dispatcher Enqueuer
	logger     zerolog.Logger

	home       geo.Point
	airports   []geo.Point
	patternCfg pattern.Config
	squawkCfg  squawk.Config

	mu          sync.RWMutex
	watchlist   map[string]config.WatchEntry
	recent      []alert.Alert
	listeners   []func(alert.Alert)
	startedAt   time.Time
	lastPoll    time.Time
	polls       uint64
	fetchErrors uint64
	consecutive int
	seenCount   int
	emitted     uint64
}

// New wires a monitor from the loaded configuration.
func New(cfg *config.Config, dispatcher Enqueuer, logger zerolog.Logger) *Monitor {
	store := track.NewStore(track.DefaultPositionCapacity)
	store.SetActiveGauge(activeTracks)

	m := &Monitor{
		cfg:        cfg,
		feed:       adsb.NewFeedClient(cfg.Feed.URL, cfg.Feed.FetchTimeout(), logger),
		store:      store,
		flybys:     flyby.NewTracker(cfg.FlybyConfig()),
		deduper:    alert.NewDeduper(cfg.DedupConfig()),
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "monitor").Logger(),
		home:       cfg.Home.Point(),
		airports:   cfg.AirportPoints(),
		patternCfg: cfg.PatternConfig(),
		squawkCfg:  cfg.SquawkConfig(),
		watchlist:  indexWatchlist(cfg.Watchlist),
		startedAt:  time.Now(),
	}
	return m
}

func indexWatchlist(entries []config.WatchEntry) map[string]config.WatchEntry {
	idx := make(map[string]config.WatchEntry, len(entries))
	for _, e := range entries {
		idx[e.ICAO] = e
	}
	return idx
}

// Store exposes the track store for the HTTP API.
func (m *Monitor) Store() *track.Store { return m.store }

// OnAlert registers a listener invoked for every emitted alert, after the
// dispatcher enqueue. Register before Run starts.
func (m *Monitor) OnAlert(fn func(alert.Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// ReloadWatchlist swaps the watch list without restarting. In-flight
// flyby records for removed aircraft conclude naturally.
func (m *Monitor) ReloadWatchlist(entries []config.WatchEntry) int {
	idx := indexWatchlist(entries)
	m.mu.Lock()
	m.watchlist = idx
	m.mu.Unlock()
	m.logger.Info().Int("entries", len(idx)).Msg("Watchlist reloaded")
	return len(idx)
}

func (m *Monitor) watchEntry(id string) (config.WatchEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.watchlist[id]
	return e, ok
}

// Recent returns up to n most recent alerts, newest first.
func (m *Monitor) Recent(n int) []alert.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.recent) {
		n = len(m.recent)
	}
	out := make([]alert.Alert, 0, n)
	for i := len(m.recent) - 1; i >= len(m.recent)-n; i-- {
		out = append(out, m.recent[i])
	}
	return out
}

// Status returns the current operational summary.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		StartedAt:       m.startedAt,
		LastPoll:        m.lastPoll,
		Polls:           m.polls,
		FetchErrors:     m.fetchErrors,
		ConsecutiveFail: m.consecutive,
		AircraftSeen:    m.seenCount,
		ActiveTracks:    m.store.Count(),
		ActiveFlybys:    m.flybys.ActiveCount(),
		WatchlistSize:   len(m.watchlist),
		AlertsEmitted:   m.emitted,
	}
}

// Run executes poll cycles until the context is canceled. The first cycle
// runs immediately; failed fetches add the configured backoff on top of
// the poll interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Str("feed_url", m.cfg.Feed.URL).
		Dur("poll_interval", m.cfg.Feed.PollInterval()).
		Int("watchlist", len(m.watchlist)).
		Msg("Monitor starting")

	for {
		wait := m.cfg.Feed.PollInterval()
		if err := m.Cycle(ctx, time.Now()); err != nil {
			wait += m.cfg.Feed.FailureBackoff()
		}

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor stopping")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Cycle runs one full poll cycle at the given wall-clock time.
func (m *Monitor) Cycle(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	snaps, err := m.feed.Fetch(ctx)
	if err != nil {
		m.recordFetchFailure(now, err)
		return err
	}

	m.mu.Lock()
	m.consecutive = 0
	m.seenCount = len(snaps)
	m.lastPoll = now
	m.polls++
	m.mu.Unlock()

	aircraftSeen.Set(float64(len(snaps)))

	seen := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		snap.SeenAt = now
		seen[snap.ID()] = true
		m.store.Update(snap)
		m.observeWatched(snap)
		m.classify(snap, now)
	}

	if m.cfg.Formation.Enabled {
		for _, an := range detectFormations(snaps, m.cfg.Formation, now) {
			m.emitAnomaly(an, now)
		}
	}

	for _, ev := range m.flybys.Sweep(seen, now) {
		m.emitFlyby(ev, now)
	}

	m.store.EvictStale(now, m.cfg.Thresholds.StaleAfter())
	activeFlybys.Set(float64(m.flybys.ActiveCount()))
	m.deduper.Purge(now)
	pollsTotal.Inc()
	return nil
}

func (m *Monitor) recordFetchFailure(now time.Time, err error) {
	fetchErrorsTotal.Inc()
	m.mu.Lock()
	m.fetchErrors++
	m.consecutive++
	failures := m.consecutive
	m.mu.Unlock()

	m.logger.Warn().Err(err).Int("consecutive", failures).Msg("Feed fetch failed")

	if failures == m.cfg.Feed.OutageThreshold {
		reason := fmt.Sprintf("feed unreachable for %d consecutive polls", failures)
		m.emitAnomaly(alert.NewAnomaly(feedAircraftID, alert.KindFeedOutage,
			alert.SeverityHigh, nil, reason, now), now)
	}
}

// observeWatched feeds distance samples to the flyby tracker for
// watch-listed aircraft that reported a position this cycle.
func (m *Monitor) observeWatched(snap *adsb.Snapshot) {
	if _, ok := m.watchEntry(snap.ID()); !ok {
		return
	}
	if !snap.HasPosition() {
		return
	}
	dist := geo.Distance(geo.Point{Lat: *snap.Lat, Lon: *snap.Lon}, m.home)
	m.flybys.Observe(snap, dist)
}

// classify runs the per-aircraft anomaly detectors on one snapshot.
func (m *Monitor) classify(snap *adsb.Snapshot, now time.Time) {
	id := snap.ID()

	if res := squawk.Triage(snap, m.airports, m.squawkCfg); res != nil {
		if res.Suppressed {
			m.logger.Debug().
				Str("aircraft_id", id).
				Str("code", res.Code).
				Str("reason", res.Reason).
				Msg("Emergency squawk suppressed")
		} else {
			reason := fmt.Sprintf("%s squawking %s (%s)", snap.DisplayName(), res.Code, res.Label)
			m.emitAnomaly(alert.NewAnomaly(id, alert.KindEmergencySquawk,
				squawkSeverity(res.Code), snap, reason, now), now)
		}
	}

	window := m.store.Window(id, analysisSamples)
	headings := m.store.Headings(id, analysisSamples)

	if c := pattern.ClassifyCircling(window, headings, m.patternCfg); c != nil {
		reason := fmt.Sprintf("%s circling %s, radius %.1f mi, %.0f deg/min, confidence %.2f",
			snap.DisplayName(), c.Direction, c.RadiusMiles, c.TurnRateDegPerMin, c.Confidence)
		m.emitAnomaly(alert.NewAnomaly(id, alert.KindCircling,
			circlingSeverity(c.Risk), snap, reason, now), now)
	} else if sp := pattern.ClassifySearchPattern(window, headings, m.patternCfg); sp != nil {
		reason := fmt.Sprintf("%s flying a search pattern over a %.1f mi area, confidence %.2f",
			snap.DisplayName(), sp.CoveredRadiusMiles, sp.Confidence)
		m.emitAnomaly(alert.NewAnomaly(id, alert.KindSearchPattern,
			alert.SeverityMedium, snap, reason, now), now)
	}

	if an := detectZoneIncursion(snap, m.cfg.Zones, now); an != nil {
		m.emitAnomaly(*an, now)
	}
}

// emitFlyby converts a concluded flyby into a tracked alert, subject to
// the per-aircraft cooldown.
func (m *Monitor) emitFlyby(ev flyby.Event, now time.Time) {
	entry, _ := m.watchEntry(ev.ID)
	label := entry.Label
	if label == "" {
		label = ev.ID
	}

	if !m.deduper.AllowTracked(ev.ID, now) {
		alertsSuppressedTotal.WithLabelValues(string(alert.TypeTracked), string(ev.Outcome)).Inc()
		m.logger.Debug().Str("aircraft_id", ev.ID).Msg("Tracked alert in cooldown")
		return
	}

	subject := fmt.Sprintf("Watched aircraft %s: %s", label, ev.Outcome)
	a := alert.NewTrackedAlert(ev, fmt.Sprintf("closest approach %.1f mi after %d sightings", ev.ClosestMiles, ev.Samples), subject)
	alertsEmittedTotal.WithLabelValues(string(alert.TypeTracked), string(ev.Outcome)).Inc()
	m.publish(a)
}

// emitAnomaly applies the anomaly cooldown policies before publishing.
func (m *Monitor) emitAnomaly(an alert.Anomaly, now time.Time) {
	if !m.deduper.AllowAnomaly(an.AircraftID, an.Kind, an.Severity, now) {
		alertsSuppressedTotal.WithLabelValues(string(alert.TypeAnomaly), string(an.Kind)).Inc()
		m.logger.Debug().
			Str("aircraft_id", an.AircraftID).
			Str("kind", string(an.Kind)).
			Msg("Anomaly alert suppressed")
		return
	}

	a := alert.NewAnomalyAlert(an, anomalySubject(an))
	alertsEmittedTotal.WithLabelValues(string(alert.TypeAnomaly), string(an.Kind)).Inc()
	m.publish(a)
}

func anomalySubject(an alert.Anomaly) string {
	switch an.Kind {
	case alert.KindEmergencySquawk:
		return "Emergency squawk"
	case alert.KindCircling:
		return "Circling aircraft"
	case alert.KindSearchPattern:
		return "Search pattern"
	case alert.KindFormation:
		return "Formation flight"
	case alert.KindRestrictedArea:
		return "Restricted area incursion"
	case alert.KindFeedOutage:
		return "Feed outage"
	default:
		return "Anomaly"
	}
}

func (m *Monitor) publish(a alert.Alert) {
	m.dispatcher.Enqueue(a)

	m.mu.Lock()
	m.emitted++
	m.recent = append(m.recent, a)
	if len(m.recent) > recentAlertCap {
		m.recent = m.recent[len(m.recent)-recentAlertCap:]
	}
	listeners := m.listeners
	m.mu.Unlock()

	m.logger.Info().
		Str("alert_id", a.ID).
		Str("type", string(a.Type)).
		Str("aircraft_id", a.AircraftID).
		Str("subject", a.Subject).
		Msg(a.Reason)

	for _, fn := range listeners {
		fn(a)
	}
}
