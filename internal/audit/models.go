package audit

import (
	"time"

	"github.com/google/uuid"

	"civicdesk/internal/archive/models"
)

// Actions recorded by the archival subsystem.
const (
	ActionArchived = "archive.created"
	ActionRestored = "archive.restored"
)

// Event is emitted from domain logic to capture archival actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Action     string
	EntityKind models.EntityKind
	EntityID   uuid.UUID
	// ActorID is nil for system-initiated actions (retention sweep).
	ActorID *uuid.UUID
	Reason  string
}
