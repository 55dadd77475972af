package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"civicdesk/pkg/platform/sentinel"
)

// InMemory is a map-backed Directory for unit tests and local development.
// Seed methods are safe for concurrent use with reads.
type InMemory struct {
	mu            sync.RWMutex
	requests      map[uuid.UUID]Request
	organizations map[uuid.UUID]Organization
	accounts      map[uuid.UUID]Account
	categories    map[uuid.UUID]Category
	attachments   map[uuid.UUID][]Attachment
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests:      make(map[uuid.UUID]Request),
		organizations: make(map[uuid.UUID]Organization),
		accounts:      make(map[uuid.UUID]Account),
		categories:    make(map[uuid.UUID]Category),
		attachments:   make(map[uuid.UUID][]Attachment),
	}
}

func (d *InMemory) SeedRequest(r Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests[r.ID] = r
}

func (d *InMemory) SeedOrganization(o Organization) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.organizations[o.ID] = o
}

func (d *InMemory) SeedAccount(a Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[a.ID] = a
}

func (d *InMemory) SeedCategory(c Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categories[c.ID] = c
}

func (d *InMemory) SeedAttachment(a Attachment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachments[a.RequestID] = append(d.attachments[a.RequestID], a)
}

func (d *InMemory) FindRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (d *InMemory) FindOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.organizations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (d *InMemory) FindAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (d *InMemory) FindCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.categories[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (d *InMemory) ListAttachments(ctx context.Context, requestID uuid.UUID) ([]Attachment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Attachment, len(d.attachments[requestID]))
	copy(out, d.attachments[requestID])
	return out, nil
}

func (d *InMemory) ListMembers(ctx context.Context, organizationID uuid.UUID) ([]Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Account
	for _, a := range d.accounts {
		if a.OrganizationID == organizationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *InMemory) ListRecentRequestsByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := make(map[uuid.UUID]struct{})
	for _, a := range d.accounts {
		if a.OrganizationID == organizationID {
			members[a.ID] = struct{}{}
		}
	}
	var out []Request
	for _, r := range d.requests {
		if _, ok := members[r.RequesterID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *InMemory) ListRequestsByRequester(ctx context.Context, accountID uuid.UUID) ([]Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Request
	for _, r := range d.requests {
		if r.RequesterID == accountID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (d *InMemory) ListRequestsByAssignee(ctx context.Context, accountID uuid.UUID) ([]Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Request
	for _, r := range d.requests {
		if r.AssigneeID != nil && *r.AssigneeID == accountID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (d *InMemory) ListCompletedRequests(ctx context.Context) ([]Request, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Request
	for _, r := range d.requests {
		if r.CompletedAt != nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	return out, nil
}
