// Package notify carries deduplicated alerts out of the process. Sinks
// are best-effort: a failed dispatch is logged and dropped, never retried
// here. Retry policy belongs to the receiving side.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
)

// Sink delivers one alert to a destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, a alert.Alert) error
}

// LogSink writes alerts to the structured log. Always configured; serves
// as the floor when no external sink is reachable.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, a alert.Alert) error {
	s.logger.Info().
		Str("alert_id", a.ID).
		Str("type", string(a.Type)).
		Str("aircraft_id", a.AircraftID).
		Str("severity", string(a.Severity)).
		Str("subject", a.Subject).
		Msg(a.Reason)
	return nil
}

// WebhookSink POSTs alerts as JSON to a configured URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink with a bounded request timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    2,
				IdleConnTimeout: 10 * time.Second,
			},
		},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "flighttrak-webhook")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
