// Package handler serves the HTTP API: live aircraft state, recent and
// archived alerts, operational status, and the websocket alert feed.
package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/adsb"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/config"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/history"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/monitor"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/notify"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/track"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flighttrak_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flighttrak_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	wsConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flighttrak_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(wsConnectionsActive)
}

// Server bundles the API's dependencies. The history pool and NATS sink
// are optional; absent components report as such in /health.
type Server struct {
	mon        *monitor.Monitor
	hub        *WebSocketHub
	db         *history.Pool
	nats       *notify.NATSSink
	configPath string
	serverCfg  config.ServerConfig
	logger     zerolog.Logger
	startTime  time.Time
}

// NewServer creates the API server.
func NewServer(mon *monitor.Monitor, hub *WebSocketHub, db *history.Pool, nats *notify.NATSSink, configPath string, serverCfg config.ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		mon:        mon,
		hub:        hub,
		db:         db,
		nats:       nats,
		configPath: configPath,
		serverCfg:  serverCfg,
		logger:     logger.With().Str("component", "api").Logger(),
		startTime:  time.Now(),
	}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.correlationIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(prometheusMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.serverCfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Correlation-ID", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", NewWebSocketHandler(s.hub, s.serverCfg.AllowedOrigins, s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft", s.handleListAircraft)
		r.Get("/aircraft/{id}", s.handleGetAircraft)
		r.Get("/alerts", s.handleListAlerts)
		r.Get("/status", s.handleStatus)
		r.Post("/watchlist/reload", s.handleWatchlistReload)
	})

	return r
}

// correlationIDMiddleware adds a correlation ID to each request
func (s *Server) correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := WithCorrelationID(r.Context(), correlationID)
		w.Header().Set("X-Correlation-ID", correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs each HTTP request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("correlation_id", GetCorrelationID(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// prometheusMiddleware records HTTP metrics
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, fmt.Sprintf("%d", ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string            `json:"status"`
	Uptime        string            `json:"uptime"`
	Components    map[string]string `json:"components"`
	CorrelationID string            `json:"correlation_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := HealthResponse{
		Status:        "healthy",
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Components:    make(map[string]string),
		CorrelationID: GetCorrelationID(ctx),
	}

	st := s.mon.Status()
	if st.ConsecutiveFail > 0 {
		response.Components["feed"] = fmt.Sprintf("failing: %d consecutive errors", st.ConsecutiveFail)
		response.Status = "degraded"
	} else {
		response.Components["feed"] = "healthy"
	}

	if s.db != nil {
		if err := s.db.Health(ctx); err != nil {
			response.Components["postgres"] = "unhealthy: " + err.Error()
			response.Status = "degraded"
		} else {
			response.Components["postgres"] = "healthy"
		}
	} else {
		response.Components["postgres"] = "not configured"
	}

	if s.nats != nil {
		if s.nats.Connected() {
			response.Components["nats"] = "connected"
		} else {
			response.Components["nats"] = "disconnected"
			response.Status = "degraded"
		}
	} else {
		response.Components["nats"] = "not configured"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, response)
}

// AircraftView is the API projection of one live track.
type AircraftView struct {
	ID        string         `json:"id"`
	Callsigns []string       `json:"callsigns,omitempty"`
	Squawks   []string       `json:"squawks,omitempty"`
	Latest    *adsb.Snapshot `json:"latest,omitempty"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
	Positions int            `json:"positions"`
}

func aircraftView(rec *track.Record) AircraftView {
	return AircraftView{
		ID:        rec.ID,
		Callsigns: rec.Callsigns(),
		Squawks:   rec.Squawks(),
		Latest:    rec.Latest,
		FirstSeen: rec.FirstSeen,
		LastSeen:  rec.LastSeen,
		Positions: rec.PositionCount(),
	}
}

func (s *Server) handleListAircraft(w http.ResponseWriter, r *http.Request) {
	records := s.mon.Store().All()
	views := make([]AircraftView, 0, len(records))
	for _, rec := range records {
		views = append(views, aircraftView(rec))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(views),
		"aircraft": views,
	})
}

// AircraftDetail adds the position history to the list projection.
type AircraftDetail struct {
	AircraftView
	Track []track.PositionSample `json:"track"`
}

func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.mon.Store().Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "aircraft not found: "+id, GetCorrelationID(r.Context()))
		return
	}

	WriteJSON(w, http.StatusOK, AircraftDetail{
		AircraftView: aircraftView(rec),
		Track:        s.mon.Store().Window(id, track.DefaultPositionCapacity),
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	if s.db != nil {
		filter := history.AlertFilter{
			Type:       r.URL.Query().Get("type"),
			Kind:       r.URL.Query().Get("kind"),
			AircraftID: r.URL.Query().Get("aircraft"),
			Limit:      limit,
		}
		alerts, err := s.db.ListAlerts(r.Context(), filter)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to query alert archive")
			WriteError(w, http.StatusInternalServerError, "alert archive query failed", GetCorrelationID(r.Context()))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"count":  len(alerts),
			"source": "archive",
			"alerts": alerts,
		})
		return
	}

	alerts := s.mon.Recent(limit)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(alerts),
		"source": "memory",
		"alerts": alerts,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.mon.Status()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"monitor":           st,
		"websocket_clients": s.hub.ClientCount(),
		"uptime":            time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleWatchlistReload re-reads the config file and swaps the watch list
// without restarting the monitor.
func (s *Server) handleWatchlistReload(w http.ResponseWriter, r *http.Request) {
	correlationID := GetCorrelationID(r.Context())

	cfg, err := config.Load(s.configPath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.configPath).Msg("Watchlist reload failed")
		WriteError(w, http.StatusBadRequest, "config reload failed: "+err.Error(), correlationID)
		return
	}

	n := s.mon.ReloadWatchlist(cfg.Watchlist)
	WriteSuccess(w, http.StatusOK, "watchlist reloaded", map[string]int{"entries": n}, correlationID)
}
