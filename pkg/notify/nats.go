package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
)

// NATSSink publishes alerts to a NATS subject hierarchy so downstream
// consumers (dashboards, mailers, archive writers) can subscribe to the
// slices they care about: alert.tracked.<id> and alert.anomaly.<kind>.
type NATSSink struct {
	nc *nats.Conn
}

// ConnectNATS dials the broker with the reconnect behavior a long-running
// monitor wants: unlimited reconnects, logged transitions.
func ConnectNATS(url string, logger zerolog.Logger) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("flighttrak"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSink{nc: nc}, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the publish subject for an alert.
func Subject(a alert.Alert) string {
	if a.Type == alert.TypeTracked {
		return "alert.tracked." + a.AircraftID
	}
	kind := "unknown"
	if a.Anomaly != nil {
		kind = string(a.Anomaly.Kind)
	}
	return "alert.anomaly." + kind
}

func (s *NATSSink) Send(_ context.Context, a alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := s.nc.Publish(Subject(a), data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Connected reports whether the broker connection is currently up.
func (s *NATSSink) Connected() bool {
	return s.nc != nil && s.nc.IsConnected()
}

// Close drains the connection.
func (s *NATSSink) Close() {
	s.nc.Close()
}
