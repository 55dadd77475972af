package retention

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/archive/service"
	"civicdesk/internal/archive/snapshot"
	"civicdesk/internal/archive/store"
	"civicdesk/internal/directory"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/requestcontext"
)

func testLoggerFor(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func contextWithTime(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

type sweepFixture struct {
	dir      *directory.InMemory
	store    *store.InMemory
	archives *service.Service
	engine   *Engine
	category uuid.UUID
}

func newSweepFixture(t *testing.T, durationMonths int) *sweepFixture {
	t.Helper()
	dir := directory.NewInMemory()
	st := store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	category := uuid.New()
	dir.SeedCategory(directory.Category{ID: category, Name: "Roadworks"})
	return &sweepFixture{
		dir:      dir,
		store:    st,
		archives: service.New(st, snapshot.NewResolver(dir), logger),
		engine: NewEngine([]Policy{
			{CategoryID: category, DurationMonths: durationMonths, Description: "roadworks"},
		}),
		category: category,
	}
}

func (f *sweepFixture) newSweeper() *Sweeper {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewSweeper(f.dir, f.archives, f.store, f.engine, logger, nil)
}

func (f *sweepFixture) seedCompleted(categoryID uuid.UUID, completedAt time.Time) directory.Request {
	req := directory.Request{
		ID:          uuid.New(),
		Title:       "Cracked pavement",
		CategoryID:  categoryID,
		RequesterID: uuid.New(),
		CreatedAt:   completedAt.AddDate(0, 0, -14),
		CompletedAt: &completedAt,
	}
	f.dir.SeedRequest(req)
	return req
}

func sweepAt(t *testing.T, s *Sweeper, now time.Time) Result {
	t.Helper()
	result, err := s.Run(requestcontext.WithTime(context.Background(), now))
	require.NoError(t, err)
	return result
}

func TestSweepArchivesExpiredRequests(t *testing.T) {
	f := newSweepFixture(t, 6)
	req := f.seedCompleted(f.category, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	sweeper := f.newSweeper()

	result := sweepAt(t, sweeper, time.Date(2024, 7, 2, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{ArchivedCount: 1, TotalProcessed: 1}, result)

	rec, err := f.store.Find(context.Background(), models.EntityKindRequest, req.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Contains(t, rec.Reason, "retention policy")
	assert.Nil(t, rec.ArchivedBy)
}

func TestSweepHonorsCalendarMonthCutoff(t *testing.T) {
	f := newSweepFixture(t, 6)
	f.seedCompleted(f.category, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	sweeper := f.newSweeper()

	// One day short of six calendar months: still retained.
	early := sweepAt(t, sweeper, time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{SkippedCount: 1, TotalProcessed: 1}, early)

	// At the cutoff instant the request becomes eligible.
	due := sweepAt(t, sweeper, time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{ArchivedCount: 1, TotalProcessed: 1}, due)
}

func TestSweepSkipsCategoriesWithoutPolicy(t *testing.T) {
	f := newSweepFixture(t, 6)
	uncovered := uuid.New()
	f.dir.SeedCategory(directory.Category{ID: uncovered, Name: "Misc"})
	f.seedCompleted(uncovered, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	sweeper := f.newSweeper()

	result := sweepAt(t, sweeper, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{SkippedCount: 1, TotalProcessed: 1}, result)
}

func TestSweepExcludesAlreadyArchived(t *testing.T) {
	f := newSweepFixture(t, 6)
	req := f.seedCompleted(f.category, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sweeper := f.newSweeper()

	_, err := f.archives.Archive(context.Background(), models.EntityKindRequest, req.ID, "manual", nil)
	require.NoError(t, err)

	result := sweepAt(t, sweeper, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{}, result)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t, 6)
	f.seedCompleted(f.category, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sweeper := f.newSweeper()
	now := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)

	first := sweepAt(t, sweeper, now)
	assert.Equal(t, 1, first.ArchivedCount)

	second := sweepAt(t, sweeper, now)
	assert.Equal(t, Result{}, second)
}

// flakyArchiver fails for one designated request and delegates otherwise.
type flakyArchiver struct {
	inner  Archiver
	failID uuid.UUID
	err    error
}

func (a flakyArchiver) Archive(ctx context.Context, kind models.EntityKind, entityID uuid.UUID, reason string, actorID *uuid.UUID) (*models.ArchiveRecord, error) {
	if entityID == a.failID {
		return nil, a.err
	}
	return a.inner.Archive(ctx, kind, entityID, reason, actorID)
}

func TestSweepIsolatesCandidateFailures(t *testing.T) {
	f := newSweepFixture(t, 6)
	completed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	broken := f.seedCompleted(f.category, completed)
	f.seedCompleted(f.category, completed.Add(time.Hour))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	archiver := flakyArchiver{
		inner:  f.archives,
		failID: broken.ID,
		err:    dErrors.New(dErrors.CodeInternal, "snapshot failed"),
	}
	sweeper := NewSweeper(f.dir, archiver, f.store, f.engine, logger, nil)

	result := sweepAt(t, sweeper, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{ArchivedCount: 1, ErrorCount: 1, TotalProcessed: 2}, result)
}

func TestSweepCountsLostRaceAsSkip(t *testing.T) {
	f := newSweepFixture(t, 6)
	raced := f.seedCompleted(f.category, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	archiver := flakyArchiver{
		inner:  f.archives,
		failID: raced.ID,
		err:    dErrors.New(dErrors.CodeConflict, "already archived"),
	}
	sweeper := NewSweeper(f.dir, archiver, f.store, f.engine, logger, nil)

	result := sweepAt(t, sweeper, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Result{SkippedCount: 1, TotalProcessed: 1}, result)
}

func TestForceArchiveBypassesPolicy(t *testing.T) {
	f := newSweepFixture(t, 6)
	// Completed yesterday, nowhere near the six-month cutoff.
	completed := time.Now().AddDate(0, 0, -1)
	req := f.seedCompleted(f.category, completed)
	sweeper := f.newSweeper()
	actor := uuid.New()

	rec, err := sweeper.ForceArchive(context.Background(), req.ID, &actor)
	require.NoError(t, err)
	assert.Contains(t, rec.Reason, "forced archival")
	require.NotNil(t, rec.ArchivedBy)
	assert.Equal(t, actor, *rec.ArchivedBy)
}
