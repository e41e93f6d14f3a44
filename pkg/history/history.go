// Package history provides optional alert persistence in PostgreSQL. The
// monitor runs fine without it; when a database URL is configured, every
// emitted alert is archived for later review through the API.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
)

// Pool wraps pgxpool.Pool with alert archive queries.
type Pool struct {
	*pgxpool.Pool
}

// NewPoolFromURL creates a pool from a connection URL and verifies the
// connection.
func NewPoolFromURL(ctx context.Context, url string) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// EnsureSchema creates the alert archive table when it does not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	_, err := p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id          UUID PRIMARY KEY,
			type        TEXT NOT NULL,
			aircraft_id TEXT NOT NULL,
			kind        TEXT NOT NULL DEFAULT '',
			severity    TEXT NOT NULL DEFAULT '',
			subject     TEXT NOT NULL,
			reason      TEXT NOT NULL,
			payload     JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}
	_, err = p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts (created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create alerts index: %w", err)
	}
	return nil
}

// InsertAlert archives one emitted alert. The full alert is stored as
// JSON alongside the indexed columns.
func (p *Pool) InsertAlert(ctx context.Context, a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	kind := ""
	if a.Anomaly != nil {
		kind = string(a.Anomaly.Kind)
	}

	_, err = p.Exec(ctx, `
		INSERT INTO alerts (id, type, aircraft_id, kind, severity, subject, reason, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, string(a.Type), a.AircraftID, kind, string(a.Severity), a.Subject, a.Reason, payload, a.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// AlertFilter defines filter options for archive queries.
type AlertFilter struct {
	Type       string
	Kind       string
	AircraftID string
	Since      *time.Time
	Limit      int
}

// ListAlerts retrieves archived alerts, newest first.
func (p *Pool) ListAlerts(ctx context.Context, filter AlertFilter) ([]alert.Alert, error) {
	query := `SELECT payload FROM alerts WHERE TRUE`
	args := []interface{}{}
	argNum := 1

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argNum)
		args = append(args, filter.Type)
		argNum++
	}

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argNum)
		args = append(args, filter.Kind)
		argNum++
	}

	if filter.AircraftID != "" {
		query += fmt.Sprintf(" AND aircraft_id = $%d", argNum)
		args = append(args, filter.AircraftID)
		argNum++
	}

	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, *filter.Since)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []alert.Alert
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		var a alert.Alert
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// Health verifies database connectivity.
func (p *Pool) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.Ping(ctx)
}
