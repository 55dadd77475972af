package retention

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"civicdesk/internal/archive/metrics"
	"civicdesk/internal/archive/models"
	"civicdesk/internal/directory"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/requestcontext"
)

// Archiver is the slice of the archive service the sweeper drives.
type Archiver interface {
	Archive(ctx context.Context, kind models.EntityKind, entityID uuid.UUID, reason string, actorID *uuid.UUID) (*models.ArchiveRecord, error)
}

// ArchivedIndex exposes the already-archived entity set used to exclude
// candidates; the archive store implements it.
type ArchivedIndex interface {
	ArchivedEntityIDs(ctx context.Context, kind models.EntityKind) (map[uuid.UUID]struct{}, error)
}

// Result aggregates one sweep execution. TotalProcessed counts candidates
// examined after excluding already-archived requests, and always equals
// ArchivedCount + ErrorCount + SkippedCount.
type Result struct {
	ArchivedCount  int `json:"archived_count"`
	ErrorCount     int `json:"error_count"`
	SkippedCount   int `json:"skipped_count"`
	TotalProcessed int `json:"total_processed"`
}

// Sweeper archives resolved requests whose retention period has elapsed.
//
// Candidates are processed strictly sequentially to bound store load and keep
// per-item failure isolation simple. A concurrently running manual archive of
// the same request is expected and harmless: the store's uniqueness
// constraint resolves the race, and the sweeper counts the loss as a skip.
type Sweeper struct {
	dir      directory.Directory
	archives Archiver
	index    ArchivedIndex
	policies *Engine
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSweeper(dir directory.Directory, archives Archiver, index ArchivedIndex, policies *Engine, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		dir:      dir,
		archives: archives,
		index:    index,
		policies: policies,
		metrics:  m,
		logger:   logger,
	}
}

// Run executes one sweep. Only the candidate enumeration step can fail the
// sweep as a whole; per-candidate failures are logged, counted, and skipped
// over.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	now := requestcontext.Now(ctx)
	var result Result

	candidates, err := s.dir.ListCompletedRequests(ctx)
	if err != nil {
		return result, fmt.Errorf("enumerate sweep candidates: %w", err)
	}

	archived, err := s.index.ArchivedEntityIDs(ctx, models.EntityKindRequest)
	if err != nil {
		return result, fmt.Errorf("enumerate archived requests: %w", err)
	}

	for _, candidate := range candidates {
		if _, ok := archived[candidate.ID]; ok {
			continue
		}
		result.TotalProcessed++

		// Automatic archival never proceeds without an explicit policy.
		policy, ok := s.policies.Lookup(candidate.CategoryID)
		if !ok {
			result.SkippedCount++
			continue
		}

		// Calendar-month arithmetic, not a fixed day count.
		cutoff := candidate.CompletedAt.AddDate(0, policy.DurationMonths, 0)
		if now.Before(cutoff) {
			result.SkippedCount++
			continue
		}

		reason := fmt.Sprintf("retention policy: archived %d months after completion (%s)",
			policy.DurationMonths, policy.Description)

		_, err := s.archives.Archive(ctx, models.EntityKindRequest, candidate.ID, reason, nil)
		if err != nil {
			// A concurrent manual archive winning the race is not a failure.
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				result.SkippedCount++
				continue
			}
			result.ErrorCount++
			s.logger.ErrorContext(ctx, "sweep failed to archive candidate",
				"request_id", candidate.ID,
				"category_id", candidate.CategoryID,
				"error", err,
			)
			continue
		}
		result.ArchivedCount++
	}

	s.metrics.RecordSweep(result.ArchivedCount, result.ErrorCount)
	s.logger.InfoContext(ctx, "retention sweep completed",
		"archived", result.ArchivedCount,
		"errors", result.ErrorCount,
		"skipped", result.SkippedCount,
		"total_processed", result.TotalProcessed,
	)
	return result, nil
}

// ForceArchive archives one specific request immediately, bypassing policy
// checks entirely. Remediation path; the acting operator is recorded.
func (s *Sweeper) ForceArchive(ctx context.Context, requestID uuid.UUID, actorID *uuid.UUID) (*models.ArchiveRecord, error) {
	return s.archives.Archive(ctx, models.EntityKindRequest, requestID, "forced archival (operator remediation)", actorID)
}
