package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"civicdesk/internal/archive/models"
	"civicdesk/pkg/platform/sentinel"
)

type recordKey struct {
	kind models.EntityKind
	id   uuid.UUID
}

// InMemory is a mutex-guarded map store. The map key doubles as the
// uniqueness constraint, so the Create race resolves exactly like the
// postgres unique index does.
type InMemory struct {
	mu      sync.RWMutex
	records map[recordKey]models.ArchiveRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[recordKey]models.ArchiveRecord)}
}

func (s *InMemory) Create(ctx context.Context, rec *models.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{kind: rec.EntityKind, id: rec.EntityID}
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}
	s.records[key] = *rec
	return nil
}

func (s *InMemory) Find(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) (*models.ArchiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{kind: kind, id: entityID}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *InMemory) Delete(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{kind: kind, id: entityID}
	if _, ok := s.records[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *InMemory) List(ctx context.Context, kind models.EntityKind, filters models.ListFilters, page models.Page) (*models.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.ArchiveRecord
	for key, rec := range s.records {
		if kind != "" && key.kind != kind {
			continue
		}
		if !filters.Matches(rec) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ArchivedAt.After(matched[j].ArchivedAt)
	})

	p := page.Normalize()
	total := int64(len(matched))
	start := p.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return &models.ListResult{
		Records: matched[start:end],
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
	}, nil
}

func (s *InMemory) CountByKind(ctx context.Context) (map[models.EntityKind]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.EntityKind]int64)
	for key := range s.records {
		counts[key.kind]++
	}
	return counts, nil
}

func (s *InMemory) ArchivedEntityIDs(ctx context.Context, kind models.EntityKind) (map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[uuid.UUID]struct{})
	for key := range s.records {
		if key.kind == kind {
			ids[key.id] = struct{}{}
		}
	}
	return ids, nil
}
