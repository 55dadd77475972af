package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore appends audit events to the archive_audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS archive_audit_events (
			id          UUID PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			action      TEXT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id   UUID NOT NULL,
			actor_id    UUID,
			reason      TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var actorID any
	if event.ActorID != nil {
		actorID = *event.ActorID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_audit_events (id, occurred_at, action, entity_kind, entity_id, actor_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Timestamp, event.Action, event.EntityKind, event.EntityID, actorID, event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, action, entity_kind, entity_id, actor_id, reason
		FROM archive_audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event   Event
			actorID uuid.NullUUID
		)
		err := rows.Scan(&event.ID, &event.Timestamp, &event.Action, &event.EntityKind, &event.EntityID, &actorID, &event.Reason)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actorID.Valid {
			event.ActorID = &actorID.UUID
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
