// Package models defines the archive record, the closed set of archivable
// entity kinds, and the typed snapshot schema captured at archival time.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "civicdesk/pkg/domain-errors"
)

// EntityKind names one archivable entity type. The set is closed: each kind
// is bound at compile time to its snapshot shape and its directory accessors,
// so an unsupported kind can only enter the system through wire input and is
// rejected at the service boundary.
type EntityKind string

const (
	EntityKindRequest      EntityKind = "request"
	EntityKindOrganization EntityKind = "organization"
	EntityKindAccount      EntityKind = "account"
)

// EntityKinds lists every supported kind, in the order used by stats output.
var EntityKinds = []EntityKind{
	EntityKindRequest,
	EntityKindOrganization,
	EntityKindAccount,
}

// Valid reports whether k is a supported kind.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindRequest, EntityKindOrganization, EntityKindAccount:
		return true
	}
	return false
}

// ParseEntityKind validates wire input into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported entity kind: "+s)
	}
	return k, nil
}

// ArchiveRecord asserts that one entity is currently archived. Its presence
// is the sole source of truth for archived status; the entity's own table
// carries no flag. Records are immutable once created and deleted on restore.
type ArchiveRecord struct {
	ID         uuid.UUID  `json:"id"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Snapshot   Snapshot   `json:"snapshot"`
	Reason     string     `json:"reason,omitempty"`
	// ArchivedBy is nil when the retention sweep archived the entity.
	ArchivedBy *uuid.UUID `json:"archived_by,omitempty"`
	ArchivedAt time.Time  `json:"archived_at"`
}

// Status is the answer to "is this entity archived?". Record is nil when
// Archived is false.
type Status struct {
	Archived bool           `json:"archived"`
	Record   *ArchiveRecord `json:"record,omitempty"`
}

// KindCount is one row of the stats aggregation.
type KindCount struct {
	EntityKind EntityKind `json:"entity_kind"`
	Count      int64      `json:"count"`
}

// Stats groups archive counts by kind with a grand total.
type Stats struct {
	ByKind []KindCount `json:"by_kind"`
	Total  int64       `json:"total"`
}
