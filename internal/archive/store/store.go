// Package store persists archive records. It is the only layer that knows
// the physical representation; everything above works with models types.
package store

import (
	"context"

	"github.com/google/uuid"

	"civicdesk/internal/archive/models"
)

// Store is the archive record persistence interface.
//
// Implementations enforce the at-most-one-record-per-(kind,id) invariant
// with a uniqueness constraint, not a pre-check: Create must return
// sentinel.ErrConflict when a record already exists, even under concurrent
// callers. That constraint is the only defense against double archival.
type Store interface {
	// Create inserts a new record. Returns sentinel.ErrConflict if a record
	// for (rec.EntityKind, rec.EntityID) already exists.
	Create(ctx context.Context, rec *models.ArchiveRecord) error

	// Find returns the record for (kind, id), or (nil, nil) when the entity
	// is not archived. Absence is a normal answer, not an error.
	Find(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) (*models.ArchiveRecord, error)

	// Delete removes the record for (kind, id). Returns sentinel.ErrNotFound
	// if no record exists.
	Delete(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error

	// List returns one page of records ordered by archived_at descending.
	// kind == "" lists across all kinds.
	List(ctx context.Context, kind models.EntityKind, filters models.ListFilters, page models.Page) (*models.ListResult, error)

	// CountByKind returns archive counts grouped by entity kind.
	CountByKind(ctx context.Context) (map[models.EntityKind]int64, error)

	// ArchivedEntityIDs returns the set of archived entity IDs for one kind.
	// The retention sweep uses it to exclude already-archived candidates.
	ArchivedEntityIDs(ctx context.Context, kind models.EntityKind) (map[uuid.UUID]struct{}, error)
}
