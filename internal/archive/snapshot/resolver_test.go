package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/directory"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/sentinel"
)

func TestResolveUnsupportedKind(t *testing.T) {
	r := NewResolver(directory.NewInMemory())

	_, err := r.Resolve(context.Background(), models.EntityKind("widget"), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestResolveMissingEntity(t *testing.T) {
	r := NewResolver(directory.NewInMemory())

	_, err := r.Resolve(context.Background(), models.EntityKindRequest, uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestResolveRequest(t *testing.T) {
	dir := directory.NewInMemory()
	r := NewResolver(dir)
	ctx := context.Background()

	category := directory.Category{ID: uuid.New(), Name: "Sanitation"}
	dir.SeedCategory(category)
	requester := directory.Account{ID: uuid.New(), Name: "Mara Lind", Email: "mara@example.org"}
	responder := directory.Account{ID: uuid.New(), Name: "Otto Vik", Email: "otto@example.org"}
	dir.SeedAccount(requester)
	dir.SeedAccount(responder)

	req := directory.Request{
		ID:          uuid.New(),
		Title:       "Overflowing bins at the market",
		Description: "Bins have not been emptied for a week.",
		CategoryID:  category.ID,
		RequesterID: requester.ID,
		AssigneeID:  &responder.ID,
		CreatedAt:   time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	dir.SeedRequest(req)
	dir.SeedAttachment(directory.Attachment{ID: uuid.New(), RequestID: req.ID, Filename: "bins.jpg", SizeBytes: 20480})

	snap, err := r.Resolve(ctx, models.EntityKindRequest, req.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Request)
	assert.Nil(t, snap.Organization)
	assert.Nil(t, snap.Account)

	assert.Equal(t, "Overflowing bins at the market", snap.Request.Title)
	assert.Equal(t, "Sanitation", snap.Request.CategoryName)
	assert.Equal(t, "Mara Lind", snap.Request.Requester.Name)
	require.NotNil(t, snap.Request.Responder)
	assert.Equal(t, responder.ID, snap.Request.Responder.ID)
	require.Len(t, snap.Request.Attachments, 1)
	assert.Equal(t, "bins.jpg", snap.Request.Attachments[0].Filename)
}

func TestResolveRequestToleratesDanglingRelations(t *testing.T) {
	dir := directory.NewInMemory()
	r := NewResolver(dir)

	// Category and requester rows are gone; the request itself must still
	// be archivable.
	req := directory.Request{
		ID:          uuid.New(),
		Title:       "Orphaned request",
		CategoryID:  uuid.New(),
		RequesterID: uuid.New(),
		CreatedAt:   time.Now(),
	}
	dir.SeedRequest(req)

	snap, err := r.Resolve(context.Background(), models.EntityKindRequest, req.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Request)
	assert.Empty(t, snap.Request.CategoryName)
	assert.Equal(t, req.RequesterID, snap.Request.Requester.ID)
	assert.Empty(t, snap.Request.Requester.Name)
}

func TestResolveOrganization(t *testing.T) {
	dir := directory.NewInMemory()
	r := NewResolver(dir)

	org := directory.Organization{ID: uuid.New(), Name: "Brookfield", PostalCode: "04520", Population: 18000}
	dir.SeedOrganization(org)
	member := directory.Account{ID: uuid.New(), Name: "Ines Kahr", Role: "member", OrganizationID: org.ID}
	dir.SeedAccount(member)
	dir.SeedRequest(directory.Request{
		ID:          uuid.New(),
		Title:       "Streetlight out",
		CategoryID:  uuid.New(),
		RequesterID: member.ID,
		CreatedAt:   time.Now(),
	})

	snap, err := r.Resolve(context.Background(), models.EntityKindOrganization, org.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Organization)
	assert.Equal(t, "Brookfield", snap.Organization.Name)
	require.Len(t, snap.Organization.Members, 1)
	assert.Equal(t, "Ines Kahr", snap.Organization.Members[0].Name)
	require.Len(t, snap.Organization.RecentRequests, 1)
	assert.Equal(t, "Streetlight out", snap.Organization.RecentRequests[0].Title)
}

func TestResolveOrganizationBoundsRecentRequests(t *testing.T) {
	dir := directory.NewInMemory()
	r := NewResolver(dir)

	org := directory.Organization{ID: uuid.New(), Name: "Lakewood"}
	dir.SeedOrganization(org)
	member := directory.Account{ID: uuid.New(), Name: "Pia Voss", OrganizationID: org.ID}
	dir.SeedAccount(member)
	for i := 0; i < directory.RecentRequestLimit+10; i++ {
		dir.SeedRequest(directory.Request{
			ID:          uuid.New(),
			Title:       "Noise complaint",
			CategoryID:  uuid.New(),
			RequesterID: member.ID,
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Minute),
		})
	}

	snap, err := r.Resolve(context.Background(), models.EntityKindOrganization, org.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Organization.RecentRequests, directory.RecentRequestLimit)
}

func TestResolveAccount(t *testing.T) {
	dir := directory.NewInMemory()
	r := NewResolver(dir)

	org := directory.Organization{ID: uuid.New(), Name: "Brookfield", PostalCode: "04520"}
	dir.SeedOrganization(org)
	acct := directory.Account{
		ID:             uuid.New(),
		Email:          "lena@example.org",
		Name:           "Lena Brandt",
		GivenName:      "Lena",
		Role:           "admin",
		OrganizationID: org.ID,
	}
	dir.SeedAccount(acct)

	category := directory.Category{ID: uuid.New(), Name: "Parks"}
	dir.SeedCategory(category)
	dir.SeedRequest(directory.Request{
		ID:          uuid.New(),
		Title:       "Fallen tree in the park",
		CategoryID:  category.ID,
		RequesterID: acct.ID,
		CreatedAt:   time.Now(),
	})
	other := directory.Account{ID: uuid.New(), Name: "Someone Else"}
	dir.SeedAccount(other)
	dir.SeedRequest(directory.Request{
		ID:          uuid.New(),
		Title:       "Graffiti on the bridge",
		CategoryID:  category.ID,
		RequesterID: other.ID,
		AssigneeID:  &acct.ID,
		CreatedAt:   time.Now(),
	})

	snap, err := r.Resolve(context.Background(), models.EntityKindAccount, acct.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Account)
	assert.Equal(t, "Lena Brandt", snap.Account.Name)
	assert.Equal(t, "Brookfield", snap.Account.Organization.Name)
	require.Len(t, snap.Account.Submitted, 1)
	assert.Equal(t, "Fallen tree in the park", snap.Account.Submitted[0].Title)
	assert.Equal(t, "Parks", snap.Account.Submitted[0].CategoryName)
	require.Len(t, snap.Account.Handled, 1)
	assert.Equal(t, "Graffiti on the bridge", snap.Account.Handled[0].Title)
}
