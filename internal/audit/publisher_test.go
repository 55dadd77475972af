package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/archive/models"
)

func TestEmitAssignsDefaults(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)

	err := p.Emit(context.Background(), Event{
		Action:     ActionArchived,
		EntityKind: models.EntityKindRequest,
		EntityID:   uuid.New(),
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Emit(context.Background(), Event{Action: ActionRestored}))
}

func TestListRecentNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store)
	ctx := context.Background()

	first := Event{ID: uuid.New(), Action: ActionArchived, EntityID: uuid.New()}
	second := Event{ID: uuid.New(), Action: ActionRestored, EntityID: first.EntityID}
	require.NoError(t, p.Emit(ctx, first))
	require.NoError(t, p.Emit(ctx, second))

	recent, err := p.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)
}
