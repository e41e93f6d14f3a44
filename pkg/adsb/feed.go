package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// feedDocument is the top-level aircraft.json shape.
type feedDocument struct {
	Now      float64           `json:"now"`
	Aircraft []json.RawMessage `json:"aircraft"`
}

// FeedClient pulls aircraft state batches over HTTP. Fetch failures are
// returned to the caller for backoff handling; individual malformed
// aircraft entries are skipped so one bad object never discards a batch.
type FeedClient struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewFeedClient creates a feed client with a bounded request timeout.
func NewFeedClient(url string, timeout time.Duration, logger zerolog.Logger) *FeedClient {
	return &FeedClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "feed").Logger(),
	}
}

// Fetch retrieves one batch of aircraft snapshots. Entries without a hex
// id are dropped; all other fields are optional.
func (f *FeedClient) Fetch(ctx context.Context) ([]*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed document: %w", err)
	}

	now := time.Now().UTC()
	snapshots := make([]*Snapshot, 0, len(doc.Aircraft))
	for _, raw := range doc.Aircraft {
		var ac rawAircraft
		if err := json.Unmarshal(raw, &ac); err != nil {
			f.logger.Debug().Err(err).Msg("Skipping malformed aircraft entry")
			continue
		}
		snap := ac.toSnapshot(now)
		if snap.Hex == "" {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}
