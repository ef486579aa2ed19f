package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

func TestInMemoryInvocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryInvocationStore()
	now := time.Now()

	first := &domain.Invocation{ID: "b", Status: domain.InvocationStatusSubmitted, SubmittedAt: now}
	second := &domain.Invocation{ID: "a", Status: domain.InvocationStatusSubmitted, SubmittedAt: now.Add(time.Second)}
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	first.Status = domain.InvocationStatusCompleted
	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.InvocationStatusSubmitted, got.Status, "store keeps its own copy")

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInMemoryInvocationStore_RequiresID(t *testing.T) {
	store := NewInMemoryInvocationStore()

	assert.Error(t, store.Save(context.Background(), nil))
	assert.Error(t, store.Save(context.Background(), &domain.Invocation{}))
}
