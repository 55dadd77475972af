package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/archive/snapshot"
	"civicdesk/internal/archive/store"
	"civicdesk/internal/audit"
	"civicdesk/internal/directory"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/requestcontext"
)

type fixture struct {
	svc   *Service
	store *store.InMemory
	dir   *directory.InMemory
	audit *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := directory.NewInMemory()
	st := store.NewInMemory()
	sink := audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := New(st, snapshot.NewResolver(dir), logger, WithAudit(audit.NewPublisher(sink)))
	return &fixture{svc: svc, store: st, dir: dir, audit: sink}
}

func (f *fixture) seedRequest(t *testing.T) directory.Request {
	t.Helper()
	category := directory.Category{ID: uuid.New(), Name: "Road maintenance"}
	f.dir.SeedCategory(category)
	requester := directory.Account{ID: uuid.New(), Name: "Ana Ruiz", Email: "ana@example.org", Role: "member"}
	f.dir.SeedAccount(requester)
	req := directory.Request{
		ID:          uuid.New(),
		Title:       "Pothole on Main St",
		CategoryID:  category.ID,
		RequesterID: requester.ID,
		CreatedAt:   time.Now(),
	}
	f.dir.SeedRequest(req)
	return req
}

func TestArchiveRejectsUnsupportedKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Archive(context.Background(), models.EntityKind("invoice"), uuid.New(), "", nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = f.svc.Restore(context.Background(), models.EntityKind("invoice"), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestArchiveMissingEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Archive(context.Background(), models.EntityKindRequest, uuid.New(), "", nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestArchiveTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	ctx := context.Background()

	first, err := f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "resolved long ago", nil)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, req.ID, first.EntityID)
	assert.Equal(t, "Pothole on Main St", first.Snapshot.Request.Title)
	assert.Equal(t, "Road maintenance", first.Snapshot.Request.CategoryName)

	_, err = f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "again", nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	ctx := context.Background()

	_, err := f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Restore(ctx, models.EntityKindRequest, req.ID))

	status := f.svc.Status(ctx, models.EntityKindRequest, req.ID)
	assert.False(t, status.Archived)

	// Archiving again after restore succeeds: the record was fully removed.
	_, err = f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "", nil)
	require.NoError(t, err)
}

func TestRestoreWithoutRecord(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Restore(context.Background(), models.EntityKindRequest, uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Empty(t, f.audit.Events())
}

func TestArchivedByRecordsActor(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	actor := uuid.New()

	rec, err := f.svc.Archive(context.Background(), models.EntityKindRequest, req.ID, "cleanup", &actor)
	require.NoError(t, err)
	require.NotNil(t, rec.ArchivedBy)
	assert.Equal(t, actor, *rec.ArchivedBy)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionArchived, events[0].Action)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, actor, *events[0].ActorID)
}

func TestSweepArchiveHasNoActor(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)

	rec, err := f.svc.Archive(context.Background(), models.EntityKindRequest, req.ID, "retention policy", nil)
	require.NoError(t, err)
	assert.Nil(t, rec.ArchivedBy)
}

func TestArchivedAtComesFromRequestTime(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	at := time.Date(2024, 7, 2, 3, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	rec, err := f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, at, rec.ArchivedAt)
}

// failingStore returns an error from every operation, to prove Status
// swallows store failures.
type failingStore struct{}

var errStore = errors.New("connection refused")

func (failingStore) Create(context.Context, *models.ArchiveRecord) error { return errStore }
func (failingStore) Find(context.Context, models.EntityKind, uuid.UUID) (*models.ArchiveRecord, error) {
	return nil, errStore
}
func (failingStore) Delete(context.Context, models.EntityKind, uuid.UUID) error { return errStore }
func (failingStore) List(context.Context, models.EntityKind, models.ListFilters, models.Page) (*models.ListResult, error) {
	return nil, errStore
}
func (failingStore) CountByKind(context.Context) (map[models.EntityKind]int64, error) {
	return nil, errStore
}
func (failingStore) ArchivedEntityIDs(context.Context, models.EntityKind) (map[uuid.UUID]struct{}, error) {
	return nil, errStore
}

func TestStatusNeverFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := New(failingStore{}, snapshot.NewResolver(directory.NewInMemory()), logger)

	status := svc.Status(context.Background(), models.EntityKindAccount, uuid.New())
	assert.False(t, status.Archived)
	assert.Nil(t, status.Record)
}

func TestStatusReportsArchivedRecord(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	ctx := context.Background()

	created, err := f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "", nil)
	require.NoError(t, err)

	status := f.svc.Status(ctx, models.EntityKindRequest, req.ID)
	require.True(t, status.Archived)
	require.NotNil(t, status.Record)
	assert.Equal(t, created.ID, status.Record.ID)
}

func TestListFiltersAccountRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := directory.Organization{ID: uuid.New(), Name: "Riverdale", PostalCode: "12401"}
	f.dir.SeedOrganization(org)

	admin := directory.Account{ID: uuid.New(), Name: "Admin One", Role: "admin", OrganizationID: org.ID}
	member := directory.Account{ID: uuid.New(), Name: "Member One", Role: "member", OrganizationID: org.ID}
	f.dir.SeedAccount(admin)
	f.dir.SeedAccount(member)

	_, err := f.svc.Archive(ctx, models.EntityKindAccount, admin.ID, "", nil)
	require.NoError(t, err)
	_, err = f.svc.Archive(ctx, models.EntityKindAccount, member.ID, "", nil)
	require.NoError(t, err)

	result, err := f.svc.List(ctx, models.EntityKindAccount, models.ListFilters{Role: "admin"}, models.Page{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, admin.ID, result.Records[0].EntityID)
}

func TestStatsIncludesZeroKinds(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t)
	ctx := context.Background()

	_, err := f.svc.Archive(ctx, models.EntityKindRequest, req.ID, "", nil)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	require.Len(t, stats.ByKind, 3)
	for _, kc := range stats.ByKind {
		if kc.EntityKind == models.EntityKindRequest {
			assert.Equal(t, int64(1), kc.Count)
		} else {
			assert.Zero(t, kc.Count)
		}
	}
}
