// Package service orchestrates archive, restore, status, listing, and stats
// against the store and the snapshot resolver. It owns the error taxonomy:
// stores return sentinels, this layer translates them to coded domain errors,
// and callers classify strictly by code.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"civicdesk/internal/archive/cache"
	"civicdesk/internal/archive/metrics"
	"civicdesk/internal/archive/models"
	"civicdesk/internal/archive/snapshot"
	"civicdesk/internal/archive/store"
	"civicdesk/internal/audit"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/sentinel"
	"civicdesk/pkg/requestcontext"
)

// Triggers recorded on archive metrics and audit reasons.
const (
	TriggerManual = "manual"
	TriggerSweep  = "sweep"
)

// Service is the archival orchestrator.
type Service struct {
	store    store.Store
	resolver *snapshot.Resolver
	audit    *audit.Publisher
	cache    *cache.StatusCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithStatusCache(c *cache.StatusCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, resolver *snapshot.Resolver, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, resolver: resolver, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Archive captures a snapshot of (kind, entityID) and creates its archive
// record. actorID is nil when the retention sweep is the actor.
//
// The original entity row is never touched; archived status is solely the
// presence of the record. Concurrent archives of the same entity resolve via
// the store's uniqueness constraint: exactly one caller wins, the rest get
// CodeConflict.
func (s *Service) Archive(ctx context.Context, kind models.EntityKind, entityID uuid.UUID, reason string, actorID *uuid.UUID) (*models.ArchiveRecord, error) {
	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported entity kind: "+string(kind))
	}
	if entityID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "entity id is required")
	}

	snap, err := s.resolver.Resolve(ctx, kind, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, string(kind)+" not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to capture snapshot")
	}

	rec := &models.ArchiveRecord{
		ID:         uuid.New(),
		EntityKind: kind,
		EntityID:   entityID,
		Snapshot:   snap,
		Reason:     reason,
		ArchivedBy: actorID,
		ArchivedAt: requestcontext.Now(ctx),
	}

	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, string(kind)+" is already archived")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create archive record")
	}

	s.cache.Invalidate(ctx, kind, entityID.String())
	s.metrics.RecordArchived(string(kind), trigger(actorID))
	s.emitAudit(ctx, audit.ActionArchived, kind, entityID, actorID, reason)

	return rec, nil
}

// Restore deletes the archive record for (kind, entityID), returning the
// entity to its active state. The entity row itself is untouched; it was
// never modified at archive time either.
func (s *Service) Restore(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error {
	if !kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unsupported entity kind: "+string(kind))
	}

	if err := s.store.Delete(ctx, kind, entityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, string(kind)+" is not archived")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete archive record")
	}

	s.cache.Invalidate(ctx, kind, entityID.String())
	s.metrics.RecordRestored(string(kind))
	actorID := actorFromContext(ctx)
	s.emitAudit(ctx, audit.ActionRestored, kind, entityID, actorID, "")

	return nil
}

// Status reports whether (kind, entityID) is archived. It never fails: this
// sits on the hot request path under the access guards, and a flaky store
// must not turn every request into an error. Any underlying failure is
// logged, counted, and collapsed into archived=false.
func (s *Service) Status(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) models.Status {
	start := time.Now()
	defer s.metrics.ObserveStatusCheck(start)

	if !kind.Valid() || entityID == uuid.Nil {
		return models.Status{Archived: false}
	}

	if status, ok := s.cache.Get(ctx, kind, entityID.String()); ok {
		return status
	}

	rec, err := s.store.Find(ctx, kind, entityID)
	if err != nil {
		s.metrics.RecordStatusCheckFailure()
		s.logger.WarnContext(ctx, "archive status check failed, treating as not archived",
			"entity_kind", kind,
			"entity_id", entityID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.Status{Archived: false}
	}

	status := models.Status{Archived: rec != nil, Record: rec}
	s.cache.Set(ctx, kind, entityID.String(), status)
	return status
}

// List returns one page of archive records, newest first. kind == "" lists
// across all kinds; a non-empty kind must be supported.
func (s *Service) List(ctx context.Context, kind models.EntityKind, filters models.ListFilters, page models.Page) (*models.ListResult, error) {
	if kind != "" && !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported entity kind: "+string(kind))
	}
	result, err := s.store.List(ctx, kind, filters, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list archives")
	}
	return result, nil
}

// Stats returns archive counts grouped by kind plus a grand total. Kinds
// with no archives are reported with a zero count.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	counts, err := s.store.CountByKind(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count archives")
	}

	stats := &models.Stats{}
	for _, kind := range models.EntityKinds {
		count := counts[kind]
		stats.ByKind = append(stats.ByKind, models.KindCount{EntityKind: kind, Count: count})
		stats.Total += count
	}
	return stats, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, kind models.EntityKind, entityID uuid.UUID, actorID *uuid.UUID, reason string) {
	err := s.audit.Emit(ctx, audit.Event{
		Action:     action,
		EntityKind: kind,
		EntityID:   entityID,
		ActorID:    actorID,
		Reason:     reason,
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		// The archival action already succeeded; a failed audit write is
		// logged, not propagated.
		s.logger.ErrorContext(ctx, "failed to append audit event",
			"action", action,
			"entity_kind", kind,
			"entity_id", entityID,
			"error", err,
		)
	}
}

func trigger(actorID *uuid.UUID) string {
	if actorID == nil {
		return TriggerSweep
	}
	return TriggerManual
}

func actorFromContext(ctx context.Context) *uuid.UUID {
	if id := requestcontext.UserID(ctx); id != uuid.Nil {
		return &id
	}
	return nil
}
