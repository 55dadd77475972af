package models

import (
	"strings"
	"time"
)

// ListFilters narrows archive listings. All fields are optional; the zero
// value matches everything. Snapshot-field filters are typed predicates over
// the snapshot schema, never path expressions into raw JSON.
type ListFilters struct {
	// Search is a case-insensitive substring match over the snapshot's
	// name, given-name, email, and title fields (whichever the kind has).
	Search string
	// Role matches account snapshots whose role equals it exactly.
	Role string
	// Population bounds match organization snapshots.
	PopulationMin *int64
	PopulationMax *int64
	// ArchivedFrom/ArchivedTo bound the record's archived_at timestamp.
	ArchivedFrom *time.Time
	ArchivedTo   *time.Time
}

// Page is offset pagination input.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps pagination to sane defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// ListResult is one page of archive records.
type ListResult struct {
	Records []ArchiveRecord `json:"records"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// Matches evaluates the filters against one record. The in-memory store uses
// it directly; the postgres store compiles the same semantics to SQL.
func (f ListFilters) Matches(rec ArchiveRecord) bool {
	if f.ArchivedFrom != nil && rec.ArchivedAt.Before(*f.ArchivedFrom) {
		return false
	}
	if f.ArchivedTo != nil && rec.ArchivedAt.After(*f.ArchivedTo) {
		return false
	}
	if f.Role != "" {
		acct := rec.Snapshot.Account
		if acct == nil || acct.Role != f.Role {
			return false
		}
	}
	if f.PopulationMin != nil || f.PopulationMax != nil {
		org := rec.Snapshot.Organization
		if org == nil {
			return false
		}
		if f.PopulationMin != nil && org.Population < *f.PopulationMin {
			return false
		}
		if f.PopulationMax != nil && org.Population > *f.PopulationMax {
			return false
		}
	}
	if f.Search != "" && !matchesSearch(rec.Snapshot, f.Search) {
		return false
	}
	return true
}

func matchesSearch(s Snapshot, search string) bool {
	needle := strings.ToLower(search)
	contains := func(fields ...string) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
	switch {
	case s.Request != nil:
		req := s.Request
		fields := []string{req.Title, req.Requester.Name, req.Requester.Email}
		if req.Responder != nil {
			fields = append(fields, req.Responder.Name, req.Responder.Email)
		}
		return contains(fields...)
	case s.Organization != nil:
		return contains(s.Organization.Name)
	case s.Account != nil:
		acct := s.Account
		return contains(acct.Name, acct.GivenName, acct.Email)
	}
	return false
}
