package directory

import (
	"context"

	"github.com/google/uuid"
)

// RecentRequestLimit bounds the related requests embedded in organization
// and account snapshots so snapshot size stays predictable.
const RecentRequestLimit = 20

// Directory is the read surface the archival subsystem needs from the live
// tables. Implementations return sentinel.ErrNotFound for missing entities
// and empty slices, not errors, for empty relations.
type Directory interface {
	FindRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	FindOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*Category, error)

	ListAttachments(ctx context.Context, requestID uuid.UUID) ([]Attachment, error)
	ListMembers(ctx context.Context, organizationID uuid.UUID) ([]Account, error)
	ListRecentRequestsByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]Request, error)
	ListRequestsByRequester(ctx context.Context, accountID uuid.UUID) ([]Request, error)
	ListRequestsByAssignee(ctx context.Context, accountID uuid.UUID) ([]Request, error)

	// ListCompletedRequests enumerates resolved requests, oldest first.
	// The retention sweep uses this as its candidate set.
	ListCompletedRequests(ctx context.Context) ([]Request, error)
}
