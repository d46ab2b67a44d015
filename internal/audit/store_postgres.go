package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists events in a single append-only table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the audit table if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id             UUID PRIMARY KEY,
			action         TEXT NOT NULL,
			actor_id       TEXT NOT NULL,
			actor_role     TEXT NOT NULL,
			entity_id      TEXT,
			detail         JSONB,
			request_id     TEXT,
			client_ip      TEXT,
			device_browser TEXT,
			device_os      TEXT,
			device_mobile  BOOLEAN NOT NULL DEFAULT FALSE,
			occurred_at    TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, e Event) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, action, actor_id, actor_role, entity_id, detail, request_id, client_ip, device_browser, device_os, device_mobile, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Action, e.ActorID, e.ActorRole, e.EntityID, detail, e.RequestID, e.ClientIP, e.Device.Browser, e.Device.OS, e.Device.Mobile, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, action, actor_id, actor_role, entity_id, detail, request_id, client_ip, device_browser, device_os, device_mobile, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.ActorRole, &e.EntityID, &detail, &e.RequestID, &e.ClientIP, &e.Device.Browser, &e.Device.OS, &e.Device.Mobile, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
