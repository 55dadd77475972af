// Package directory provides read-only access to the live entity tables
// owned by the request-tracking CRUD side. The archival subsystem never
// mutates these rows; it only reads them to capture snapshots and to
// enumerate sweep candidates.
package directory

import (
	"time"

	"github.com/google/uuid"
)

// Request is a municipal service request.
type Request struct {
	ID          uuid.UUID
	Title       string
	Description string
	CategoryID  uuid.UUID
	RequesterID uuid.UUID
	AssigneeID  *uuid.UUID
	CreatedAt   time.Time
	// CompletedAt is set when the request is resolved; only resolved
	// requests are retention-sweep candidates.
	CompletedAt *time.Time
}

// Organization is a registered municipality or civic body.
type Organization struct {
	ID         uuid.UUID
	Name       string
	PostalCode string
	Population int64
}

// Account is an authenticated principal: a requester, a responder, or an
// administrator.
type Account struct {
	ID             uuid.UUID
	Email          string
	Name           string
	GivenName      string
	Role           string
	OrganizationID uuid.UUID
}

// Category classifies requests and keys retention policies.
type Category struct {
	ID   uuid.UUID
	Name string
}

// Attachment is file metadata attached to a request. The file bytes live in
// external storage and are not part of the archival snapshot.
type Attachment struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	Filename  string
	SizeBytes int64
}
