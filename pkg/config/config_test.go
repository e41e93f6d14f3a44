package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flighttrak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
feed:
  url: http://localhost:8080/data/aircraft.json
home:
  name: home
  lat: 35.2271
  lon: -80.8431
`

// TestLoadDefaults verifies a minimal file picks up the production
// defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Feed.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.Feed.FetchTimeout())
	assert.Equal(t, 30*time.Second, cfg.Feed.FailureBackoff())
	assert.Equal(t, 20, cfg.Feed.OutageThreshold)
	assert.Equal(t, 60*time.Second, cfg.Thresholds.StaleAfter())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	fc := cfg.FlybyConfig()
	assert.Equal(t, 2.0, fc.ApproachDeltaMiles)
	assert.Equal(t, 3, fc.TrendWindow)
	assert.Equal(t, 30*time.Minute, fc.WatchTimeout)

	dc := cfg.DedupConfig()
	assert.Equal(t, 24*time.Hour, dc.TrackedCooldown)
	assert.Equal(t, time.Hour, dc.AnomalyCooldown)
}

// TestLoadOverrides verifies explicit threshold values replace defaults.
func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
thresholds:
  approach_delta_miles: 3.5
  trend_window: 5
  watch_timeout_minutes: 10
  tracked_cooldown_minutes: 60
  min_circling_samples: 8
watchlist:
  - icao: AE1234
    label: Test Aircraft
    description: local test airframe
`))
	require.NoError(t, err)

	fc := cfg.FlybyConfig()
	assert.Equal(t, 3.5, fc.ApproachDeltaMiles)
	assert.Equal(t, 5, fc.TrendWindow)
	assert.Equal(t, 10*time.Minute, fc.WatchTimeout)
	assert.Equal(t, time.Hour, cfg.DedupConfig().TrackedCooldown)
	assert.Equal(t, 8, cfg.PatternConfig().MinCirclingSamples)

	// ICAO ids are normalized to lowercase at load time.
	require.Len(t, cfg.Watchlist, 1)
	assert.Equal(t, "ae1234", cfg.Watchlist[0].ICAO)
}

// TestLoadValidation verifies the fatal-at-startup checks.
func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing feed url", "home:\n  lat: 35.0\n  lon: -80.0\n"},
		{"missing home", "feed:\n  url: http://x/aircraft.json\n"},
		{"duplicate watchlist", minimalConfig + `
watchlist:
  - icao: ae1234
  - icao: AE1234
`},
		{"zone without radius", minimalConfig + `
zones:
  - name: test zone
    lat: 35.0
    lon: -80.0
`},
		{"zone ceiling below floor", minimalConfig + `
zones:
  - name: test zone
    lat: 35.0
    lon: -80.0
    radius_miles: 2
    floor_ft: 5000
    ceiling_ft: 1000
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

// TestLoadMissingFile verifies an unreadable path surfaces an error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestEnvOverrides verifies deployment knobs win over file values.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLIGHTTRAK_FEED_URL", "http://override/aircraft.json")
	t.Setenv("FLIGHTTRAK_POLL_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "http://override/aircraft.json", cfg.Feed.URL)
	assert.Equal(t, 5*time.Second, cfg.Feed.PollInterval())
	assert.Equal(t, "debug", cfg.Log.Level)
}
