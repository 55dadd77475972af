// Package snapshot captures self-contained copies of entities at archival
// time. Each supported kind embeds a bounded set of related records so the
// archive stays interpretable after the live rows change or disappear.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/directory"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/sentinel"
)

// Resolver builds per-kind snapshots from the live entity directory.
//
// The entity itself must exist (sentinel.ErrNotFound propagates); related
// records are captured best-effort, since a dangling relation must not block
// archival of an otherwise valid entity.
type Resolver struct {
	dir directory.Directory
}

func NewResolver(dir directory.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve captures the snapshot for (kind, entityID). The kind set is closed;
// anything outside it is a validation error.
func (r *Resolver) Resolve(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) (models.Snapshot, error) {
	switch kind {
	case models.EntityKindRequest:
		snap, err := r.resolveRequest(ctx, entityID)
		if err != nil {
			return models.Snapshot{}, err
		}
		return models.Snapshot{Request: snap}, nil
	case models.EntityKindOrganization:
		snap, err := r.resolveOrganization(ctx, entityID)
		if err != nil {
			return models.Snapshot{}, err
		}
		return models.Snapshot{Organization: snap}, nil
	case models.EntityKindAccount:
		snap, err := r.resolveAccount(ctx, entityID)
		if err != nil {
			return models.Snapshot{}, err
		}
		return models.Snapshot{Account: snap}, nil
	}
	return models.Snapshot{}, dErrors.New(dErrors.CodeValidation, "unsupported entity kind: "+string(kind))
}

func (r *Resolver) resolveRequest(ctx context.Context, id uuid.UUID) (*models.RequestSnapshot, error) {
	req, err := r.dir.FindRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve request: %w", err)
	}

	snap := &models.RequestSnapshot{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CreatedAt:   req.CreatedAt,
		CompletedAt: req.CompletedAt,
		Requester:   models.PersonRef{ID: req.RequesterID},
	}

	if category, err := r.dir.FindCategory(ctx, req.CategoryID); err == nil {
		snap.CategoryName = category.Name
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("resolve request category: %w", err)
	}

	if requester, err := r.dir.FindAccount(ctx, req.RequesterID); err == nil {
		snap.Requester = personRef(requester)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("resolve requester: %w", err)
	}

	if req.AssigneeID != nil {
		if responder, err := r.dir.FindAccount(ctx, *req.AssigneeID); err == nil {
			ref := personRef(responder)
			snap.Responder = &ref
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("resolve responder: %w", err)
		}
	}

	attachments, err := r.dir.ListAttachments(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve attachments: %w", err)
	}
	for _, a := range attachments {
		snap.Attachments = append(snap.Attachments, models.AttachmentRef{
			ID:        a.ID,
			Filename:  a.Filename,
			SizeBytes: a.SizeBytes,
		})
	}

	return snap, nil
}

func (r *Resolver) resolveOrganization(ctx context.Context, id uuid.UUID) (*models.OrganizationSnapshot, error) {
	org, err := r.dir.FindOrganization(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve organization: %w", err)
	}

	snap := &models.OrganizationSnapshot{
		ID:         org.ID,
		Name:       org.Name,
		PostalCode: org.PostalCode,
		Population: org.Population,
	}

	members, err := r.dir.ListMembers(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}
	for _, m := range members {
		snap.Members = append(snap.Members, models.MemberRef{ID: m.ID, Name: m.Name, Role: m.Role})
	}

	recent, err := r.dir.ListRecentRequestsByOrganization(ctx, org.ID, directory.RecentRequestLimit)
	if err != nil {
		return nil, fmt.Errorf("resolve recent requests: %w", err)
	}
	snap.RecentRequests = r.requestRefs(ctx, recent)

	return snap, nil
}

func (r *Resolver) resolveAccount(ctx context.Context, id uuid.UUID) (*models.AccountSnapshot, error) {
	acct, err := r.dir.FindAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	snap := &models.AccountSnapshot{
		ID:        acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		GivenName: acct.GivenName,
		Role:      acct.Role,
	}

	if org, err := r.dir.FindOrganization(ctx, acct.OrganizationID); err == nil {
		snap.Organization = models.OrganizationRef{Name: org.Name, PostalCode: org.PostalCode}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("resolve owning organization: %w", err)
	}

	submitted, err := r.dir.ListRequestsByRequester(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve submitted requests: %w", err)
	}
	snap.Submitted = r.requestRefs(ctx, bound(submitted))

	handled, err := r.dir.ListRequestsByAssignee(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve handled requests: %w", err)
	}
	snap.Handled = r.requestRefs(ctx, bound(handled))

	return snap, nil
}

// requestRefs converts requests to embedded refs, resolving category names
// with a per-call cache so one snapshot triggers at most one lookup per
// category.
func (r *Resolver) requestRefs(ctx context.Context, requests []directory.Request) []models.RequestRef {
	names := make(map[uuid.UUID]string)
	var refs []models.RequestRef
	for _, req := range requests {
		name, ok := names[req.CategoryID]
		if !ok {
			if category, err := r.dir.FindCategory(ctx, req.CategoryID); err == nil {
				name = category.Name
			}
			names[req.CategoryID] = name
		}
		refs = append(refs, models.RequestRef{
			ID:           req.ID,
			Title:        req.Title,
			CreatedAt:    req.CreatedAt,
			CategoryName: name,
		})
	}
	return refs
}

func bound(requests []directory.Request) []directory.Request {
	if len(requests) > directory.RecentRequestLimit {
		return requests[:directory.RecentRequestLimit]
	}
	return requests
}

func personRef(a *directory.Account) models.PersonRef {
	return models.PersonRef{ID: a.ID, Name: a.Name, Email: a.Email}
}
