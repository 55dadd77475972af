package models

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a tagged union: exactly one field is non-nil, matching the
// record's EntityKind. Snapshots are self-contained copies with a bounded set
// of related records embedded, so an archive stays interpretable without
// re-joining live tables that may have changed or been deleted since.
type Snapshot struct {
	Request      *RequestSnapshot      `json:"request,omitempty"`
	Organization *OrganizationSnapshot `json:"organization,omitempty"`
	Account      *AccountSnapshot      `json:"account,omitempty"`
}

// Kind returns the kind of the populated variant, or "" for an empty union.
func (s Snapshot) Kind() EntityKind {
	switch {
	case s.Request != nil:
		return EntityKindRequest
	case s.Organization != nil:
		return EntityKindOrganization
	case s.Account != nil:
		return EntityKindAccount
	}
	return ""
}

// PersonRef identifies a requester or responder inside a request snapshot.
type PersonRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// AttachmentRef is attachment metadata embedded in a request snapshot.
type AttachmentRef struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
}

// RequestRef is the compact request form embedded in organization and
// account snapshots.
type RequestRef struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	CategoryName string    `json:"category_name,omitempty"`
}

// MemberRef is the compact account form embedded in organization snapshots.
type MemberRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// OrganizationRef is the owning organization embedded in account snapshots.
type OrganizationRef struct {
	Name       string `json:"name"`
	PostalCode string `json:"postal_code"`
}

// RequestSnapshot captures a service request with its category name, the
// identities on both sides, and attachment metadata.
type RequestSnapshot struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Requester    PersonRef       `json:"requester"`
	Responder    *PersonRef      `json:"responder,omitempty"`
	Attachments  []AttachmentRef `json:"attachments,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// OrganizationSnapshot captures an organization with its member list and its
// most recent requests.
type OrganizationSnapshot struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	PostalCode     string       `json:"postal_code"`
	Population     int64        `json:"population"`
	Members        []MemberRef  `json:"members,omitempty"`
	RecentRequests []RequestRef `json:"recent_requests,omitempty"`
}

// AccountSnapshot captures an account with its owning organization and the
// requests it submitted and handled.
type AccountSnapshot struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	GivenName    string          `json:"given_name,omitempty"`
	Role         string          `json:"role"`
	Organization OrganizationRef `json:"organization"`
	Submitted    []RequestRef    `json:"submitted,omitempty"`
	Handled      []RequestRef    `json:"handled,omitempty"`
}
