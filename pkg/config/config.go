// Package config loads the monitor configuration from a YAML file with
// environment overrides for the deployment knobs. Validation failures are
// fatal at startup; a monitor running with a half-loaded watch list is
// worse than one that refuses to start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/flyby"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/geo"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/pattern"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/squawk"
)

// FeedConfig describes the dump1090-compatible JSON feed.
type FeedConfig struct {
	URL                   string `yaml:"url"`
	FetchTimeoutSeconds   int    `yaml:"fetch_timeout_seconds"`
	PollIntervalSeconds   int    `yaml:"poll_interval_seconds"`
	FailureBackoffSeconds int    `yaml:"failure_backoff_seconds"`
	// OutageThreshold is the consecutive-failure count that raises a
	// feed-outage anomaly.
	OutageThreshold int `yaml:"outage_threshold"`
}

// FetchTimeout returns the per-request feed timeout.
func (f FeedConfig) FetchTimeout() time.Duration {
	return time.Duration(f.FetchTimeoutSeconds) * time.Second
}

// PollInterval returns the poll cadence.
func (f FeedConfig) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSeconds) * time.Second
}

// FailureBackoff returns the extra wait after a failed fetch.
func (f FeedConfig) FailureBackoff() time.Duration {
	return time.Duration(f.FailureBackoffSeconds) * time.Second
}

// PointConfig is a named geographic point.
type PointConfig struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Point converts to the geometry type.
func (p PointConfig) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// WatchEntry is one watch-listed airframe.
type WatchEntry struct {
	ICAO        string `yaml:"icao"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

// ZoneConfig is a circular restricted area with an altitude band. A zero
// ceiling means unbounded above.
type ZoneConfig struct {
	Name        string  `yaml:"name"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	RadiusMiles float64 `yaml:"radius_miles"`
	FloorFt     float64 `yaml:"floor_ft"`
	CeilingFt   float64 `yaml:"ceiling_ft"`
}

// Center returns the zone center.
func (z ZoneConfig) Center() geo.Point {
	return geo.Point{Lat: z.Lat, Lon: z.Lon}
}

// FormationConfig holds the pairwise formation-flight thresholds.
type FormationConfig struct {
	Enabled            bool    `yaml:"enabled"`
	MaxLateralMiles    float64 `yaml:"max_lateral_miles"`
	MaxVerticalFt      float64 `yaml:"max_vertical_ft"`
	MaxHeadingDeltaDeg float64 `yaml:"max_heading_delta_deg"`
}

// ThresholdsConfig overrides the detector defaults. Zero values fall back
// to the built-in thresholds.
type ThresholdsConfig struct {
	ApproachDeltaMiles  float64 `yaml:"approach_delta_miles"`
	TrendWindow         int     `yaml:"trend_window"`
	WatchTimeoutMinutes int     `yaml:"watch_timeout_minutes"`

	MinCirclingSamples     int     `yaml:"min_circling_samples"`
	MinSearchSamples       int     `yaml:"min_search_samples"`
	MinCirclingRadiusMiles float64 `yaml:"min_circling_radius_miles"`

	AirportRadiusMiles float64 `yaml:"airport_radius_miles"`

	TrackedCooldownMinutes int `yaml:"tracked_cooldown_minutes"`
	AnomalyCooldownMinutes int `yaml:"anomaly_cooldown_minutes"`
	HourlyAnomalyCap       int `yaml:"hourly_anomaly_cap"`
	LowSeverityThreshold   int `yaml:"low_severity_threshold"`

	StaleAfterSeconds int `yaml:"stale_after_seconds"`
}

// StaleAfter returns how long an aircraft may go unseen before its track
// is evicted.
func (t ThresholdsConfig) StaleAfter() time.Duration {
	return time.Duration(t.StaleAfterSeconds) * time.Second
}

// SinksConfig selects notification destinations. The log sink is always
// on; webhook and NATS activate when their URLs are set.
type SinksConfig struct {
	WebhookURL            string `yaml:"webhook_url"`
	WebhookTimeoutSeconds int    `yaml:"webhook_timeout_seconds"`
	NATSURL               string `yaml:"nats_url"`
	QueueSize             int    `yaml:"queue_size"`
}

// WebhookTimeout returns the webhook request timeout.
func (s SinksConfig) WebhookTimeout() time.Duration {
	return time.Duration(s.WebhookTimeoutSeconds) * time.Second
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the full monitor configuration.
type Config struct {
	Feed        FeedConfig       `yaml:"feed"`
	Home        PointConfig      `yaml:"home"`
	Watchlist   []WatchEntry     `yaml:"watchlist"`
	Airports    []PointConfig    `yaml:"airports"`
	Zones       []ZoneConfig     `yaml:"zones"`
	Formation   FormationConfig  `yaml:"formation"`
	Thresholds  ThresholdsConfig `yaml:"thresholds"`
	Sinks       SinksConfig      `yaml:"sinks"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	DatabaseURL string           `yaml:"database_url"`
}

// Load reads and parses the config file, applies environment overrides
// and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Feed.URL = getEnv("FLIGHTTRAK_FEED_URL", c.Feed.URL)
	c.Sinks.WebhookURL = getEnv("FLIGHTTRAK_WEBHOOK_URL", c.Sinks.WebhookURL)
	c.Sinks.NATSURL = getEnv("FLIGHTTRAK_NATS_URL", c.Sinks.NATSURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Server.Addr = getEnv("FLIGHTTRAK_ADDR", c.Server.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if v := os.Getenv("FLIGHTTRAK_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Feed.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("FLIGHTTRAK_PRETTY_LOG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Pretty = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Feed.PollIntervalSeconds <= 0 {
		c.Feed.PollIntervalSeconds = 15
	}
	if c.Feed.FetchTimeoutSeconds <= 0 {
		c.Feed.FetchTimeoutSeconds = 10
	}
	if c.Feed.FailureBackoffSeconds <= 0 {
		c.Feed.FailureBackoffSeconds = 30
	}
	if c.Feed.OutageThreshold <= 0 {
		c.Feed.OutageThreshold = 20
	}
	if c.Thresholds.StaleAfterSeconds <= 0 {
		c.Thresholds.StaleAfterSeconds = 60
	}
	if c.Formation.MaxLateralMiles <= 0 {
		c.Formation.MaxLateralMiles = 1.0
	}
	if c.Formation.MaxVerticalFt <= 0 {
		c.Formation.MaxVerticalFt = 1000
	}
	if c.Formation.MaxHeadingDeltaDeg <= 0 {
		c.Formation.MaxHeadingDeltaDeg = 15
	}
	if c.Sinks.WebhookTimeoutSeconds <= 0 {
		c.Sinks.WebhookTimeoutSeconds = 10
	}
	if c.Sinks.QueueSize <= 0 {
		c.Sinks.QueueSize = 64
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Watchlist {
		c.Watchlist[i].ICAO = normalizeICAO(c.Watchlist[i].ICAO)
	}
}

func (c *Config) validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Home.Lat == 0 && c.Home.Lon == 0 {
		return fmt.Errorf("home point is required")
	}
	if c.Home.Lat < -90 || c.Home.Lat > 90 || c.Home.Lon < -180 || c.Home.Lon > 180 {
		return fmt.Errorf("home point out of range: lat=%v lon=%v", c.Home.Lat, c.Home.Lon)
	}
	seen := make(map[string]bool, len(c.Watchlist))
	for i, w := range c.Watchlist {
		if w.ICAO == "" {
			return fmt.Errorf("watchlist[%d]: icao is required", i)
		}
		if seen[w.ICAO] {
			return fmt.Errorf("watchlist[%d]: duplicate icao %q", i, w.ICAO)
		}
		seen[w.ICAO] = true
	}
	for i, z := range c.Zones {
		if z.RadiusMiles <= 0 {
			return fmt.Errorf("zones[%d] (%s): radius_miles must be positive", i, z.Name)
		}
		if z.CeilingFt > 0 && z.CeilingFt < z.FloorFt {
			return fmt.Errorf("zones[%d] (%s): ceiling below floor", i, z.Name)
		}
	}
	return nil
}

// FlybyConfig merges overrides onto the trend defaults.
func (c *Config) FlybyConfig() flyby.Config {
	fc := flyby.DefaultConfig()
	if c.Thresholds.ApproachDeltaMiles > 0 {
		fc.ApproachDeltaMiles = c.Thresholds.ApproachDeltaMiles
	}
	if c.Thresholds.TrendWindow > 0 {
		fc.TrendWindow = c.Thresholds.TrendWindow
	}
	if c.Thresholds.WatchTimeoutMinutes > 0 {
		fc.WatchTimeout = time.Duration(c.Thresholds.WatchTimeoutMinutes) * time.Minute
	}
	return fc
}

// PatternConfig merges overrides onto the classifier defaults.
func (c *Config) PatternConfig() pattern.Config {
	pc := pattern.DefaultConfig()
	if c.Thresholds.MinCirclingSamples > 0 {
		pc.MinCirclingSamples = c.Thresholds.MinCirclingSamples
	}
	if c.Thresholds.MinSearchSamples > 0 {
		pc.MinSearchSamples = c.Thresholds.MinSearchSamples
	}
	if c.Thresholds.MinCirclingRadiusMiles > 0 {
		pc.MinCirclingRadiusMiles = c.Thresholds.MinCirclingRadiusMiles
	}
	return pc
}

// SquawkConfig merges overrides onto the triage defaults.
func (c *Config) SquawkConfig() squawk.Config {
	sc := squawk.DefaultConfig()
	if c.Thresholds.AirportRadiusMiles > 0 {
		sc.AirportRadiusMiles = c.Thresholds.AirportRadiusMiles
	}
	return sc
}

// DedupConfig merges overrides onto the cooldown defaults.
func (c *Config) DedupConfig() alert.DedupConfig {
	dc := alert.DefaultDedupConfig()
	if c.Thresholds.TrackedCooldownMinutes > 0 {
		dc.TrackedCooldown = time.Duration(c.Thresholds.TrackedCooldownMinutes) * time.Minute
	}
	if c.Thresholds.AnomalyCooldownMinutes > 0 {
		dc.AnomalyCooldown = time.Duration(c.Thresholds.AnomalyCooldownMinutes) * time.Minute
	}
	if c.Thresholds.HourlyAnomalyCap > 0 {
		dc.HourlyAnomalyCap = c.Thresholds.HourlyAnomalyCap
	}
	if c.Thresholds.LowSeverityThreshold > 0 {
		dc.LowSeverityThreshold = c.Thresholds.LowSeverityThreshold
	}
	return dc
}

// AirportPoints returns the airport locations for squawk triage.
func (c *Config) AirportPoints() []geo.Point {
	pts := make([]geo.Point, 0, len(c.Airports))
	for _, a := range c.Airports {
		pts = append(pts, a.Point())
	}
	return pts
}

func normalizeICAO(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
