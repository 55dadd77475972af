// Package audit records an append-only trail of archival actions. Municipal
// records rules require knowing who archived what and when, independent of
// the archive records themselves (which are deleted on restore).
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists audit events. Append-only; events are never updated.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher captures structured audit events. It uses the storage layer for
// persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends one event, assigning ID and timestamp when unset. A nil
// publisher is a no-op so audit stays optional in unit tests.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// ListRecent returns the most recent events, newest first.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
