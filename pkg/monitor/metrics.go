package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	pollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flighttrak_polls_total",
			Help: "Total number of completed poll cycles",
		},
	)

	fetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flighttrak_fetch_errors_total",
			Help: "Total number of failed feed fetches",
		},
	)

	aircraftSeen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flighttrak_aircraft_seen",
			Help: "Aircraft present in the most recent feed snapshot",
		},
	)

	activeTracks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flighttrak_active_tracks",
			Help: "Aircraft with live track records",
		},
	)

	activeFlybys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flighttrak_active_flybys",
			Help: "Watch-listed aircraft currently being tracked for closest approach",
		},
	)

	alertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flighttrak_alerts_emitted_total",
			Help: "Alerts passed to notification sinks",
		},
		[]string{"type", "kind"},
	)

	alertsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flighttrak_alerts_suppressed_total",
			Help: "Alerts dropped by cooldown or rate-cap policy",
		},
		[]string{"type", "kind"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flighttrak_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(pollsTotal)
	prometheus.MustRegister(fetchErrorsTotal)
	prometheus.MustRegister(aircraftSeen)
	prometheus.MustRegister(activeTracks)
	prometheus.MustRegister(activeFlybys)
	prometheus.MustRegister(alertsEmittedTotal)
	prometheus.MustRegister(alertsSuppressedTotal)
	prometheus.MustRegister(cycleDuration)
}
