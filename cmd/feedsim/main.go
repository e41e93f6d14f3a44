// Command feedsim serves a synthetic dump1090-compatible aircraft.json
// feed for exercising the monitor without a receiver: straight transits,
// a circling aircraft, an emergency squawker, and a watch-list candidate
// that approaches and departs.
package main

import (
	"encoding/json"
	"flag"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const milesPerDegreeLat = 69.09

type aircraft struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	AltBaro  *float64 `json:"alt_baro,omitempty"`
	GS       *float64 `json:"gs,omitempty"`
	Track    *float64 `json:"track,omitempty"`
	BaroRate *float64 `json:"baro_rate,omitempty"`
	Squawk   string   `json:"squawk,omitempty"`
}

type feedDocument struct {
	Now      float64    `json:"now"`
	Aircraft []aircraft `json:"aircraft"`
}

// simulator advances all scripted aircraft one step per tick.
type simulator struct {
	mu       sync.Mutex
	homeLat  float64
	homeLon  float64
	watchHex string
	step     int
	transits []*transit
}

// transit is a straight-line crossing at constant speed and heading.
type transit struct {
	hex     string
	flight  string
	lat     float64
	lon     float64
	alt     float64
	speed   float64
	heading float64
	squawk  string
}

func newSimulator(homeLat, homeLon float64, watchHex string) *simulator {
	s := &simulator{homeLat: homeLat, homeLon: homeLon, watchHex: watchHex}
	for i := 0; i < 6; i++ {
		s.transits = append(s.transits, &transit{
			hex:     randomHex(),
			flight:  randomFlight(),
			lat:     homeLat + (rand.Float64()-0.5)*1.2,
			lon:     homeLon + (rand.Float64()-0.5)*1.2,
			alt:     8000 + rand.Float64()*25000,
			speed:   180 + rand.Float64()*250,
			heading: rand.Float64() * 360,
		})
	}
	// One transit carries a general-emergency squawk.
	s.transits[0].squawk = "7700"
	return s
}

func randomHex() string {
	const digits = "0123456789abcdef"
	b := make([]byte, 6)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}

func randomFlight() string {
	carriers := []string{"AAL", "DAL", "UAL", "SWA", "JBU"}
	return carriers[rand.Intn(len(carriers))] + string(rune('0'+rand.Intn(10))) + string(rune('0'+rand.Intn(10))) + string(rune('0'+rand.Intn(10)))
}

// advance moves every aircraft forward by one poll interval's worth of
// travel and returns the feed document.
func (s *simulator) advance() feedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step++

	var out []aircraft

	for _, t := range s.transits {
		stepMiles := t.speed * 15.0 / 3600.0
		t.lat += stepMiles / milesPerDegreeLat * math.Cos(t.heading*math.Pi/180)
		t.lon += stepMiles / (milesPerDegreeLat * math.Cos(t.lat*math.Pi/180)) * math.Sin(t.heading*math.Pi/180)
		out = append(out, positioned(t.hex, t.flight, t.lat, t.lon, t.alt, t.speed, t.heading, t.squawk))
	}

	out = append(out, s.circler())
	if wa, visible := s.watcher(); visible {
		out = append(out, wa)
	}

	return feedDocument{
		Now:      float64(time.Now().Unix()),
		Aircraft: out,
	}
}

// circler flies a tight orbit northeast of home.
func (s *simulator) circler() aircraft {
	radiusMiles := 1.2
	angle := float64(s.step) * 18.0 // ~20 samples per orbit
	rad := angle * math.Pi / 180
	centerLat := s.homeLat + 0.15
	centerLon := s.homeLon + 0.15
	lat := centerLat + radiusMiles/milesPerDegreeLat*math.Cos(rad)
	lon := centerLon + radiusMiles/(milesPerDegreeLat*math.Cos(centerLat*math.Pi/180))*math.Sin(rad)
	heading := math.Mod(angle+90, 360)
	return positioned("c1rc1e", "N321CB", lat, lon, 1500, 90, heading, "")
}

// watcher approaches home from the north, passes close, departs, then
// leaves the feed for a while before starting over.
func (s *simulator) watcher() (aircraft, bool) {
	phase := s.step % 60
	if phase >= 40 {
		return aircraft{}, false
	}
	// 0.5 degrees out, closing at 0.025 deg per step, then back out.
	offset := math.Abs(float64(phase-20)) * 0.025
	lat := s.homeLat + 0.02 + offset
	heading := 180.0
	if phase > 20 {
		heading = 0
	}
	return positioned(s.watchHex, "WATCH1", lat, s.homeLon, 3000, 140, heading, ""), true
}

func positioned(hex, flight string, lat, lon, alt, speed, heading float64, squawk string) aircraft {
	return aircraft{
		Hex:     hex,
		Flight:  flight,
		Lat:     &lat,
		Lon:     &lon,
		AltBaro: &alt,
		GS:      &speed,
		Track:   &heading,
		Squawk:  squawk,
	}
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	homeLat := flag.Float64("lat", 35.2271, "home latitude")
	homeLon := flag.Float64("lon", -80.8431, "home longitude")
	watchHex := flag.String("watch", "ae1234", "hex id of the simulated watch-list aircraft")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	sim := newSimulator(*homeLat, *homeLon, *watchHex)

	mux := http.NewServeMux()
	mux.HandleFunc("/data/aircraft.json", func(w http.ResponseWriter, r *http.Request) {
		doc := sim.advance()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	})

	log.Info().
		Str("addr", *addr).
		Str("watch_hex", *watchHex).
		Msg("Feed simulator starting")

	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Feed simulator failed")
	}
}
