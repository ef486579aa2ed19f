package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

func newTestStore(t *testing.T, ttl time.Duration) (*InvocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewInvocationStore(client, ttl, zaptest.NewLogger(t)), mr
}

func TestInvocationStore_SaveGetDelete(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	inv := &domain.Invocation{
		ID:          "inv-1",
		Strategy:    transport.Parallel,
		Status:      domain.InvocationStatusCompleted,
		Result:      &transport.Result{Errors: []error{nil}, Data: []any{"ok"}},
		SubmittedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, inv))

	got, err := store.Get(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvocationStatusCompleted, got.Status)
	assert.Equal(t, []any{"ok"}, got.Result.Data)

	require.NoError(t, store.Delete(ctx, "inv-1"))
	_, err = store.Get(ctx, "inv-1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInvocationStore_SaveRequiresID(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	assert.Error(t, store.Save(context.Background(), &domain.Invocation{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestInvocationStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Invocation{ID: "short", SubmittedAt: time.Now()}))
	assert.Equal(t, time.Minute, mr.TTL(getInvocationKey("short")))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInvocationStore_List(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, &domain.Invocation{
			ID:          id,
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	// Unrelated and undecodable keys are ignored.
	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, mr.Set(getInvocationKey("broken"), "{"))

	list, err := store.List(ctx)
	require.NoError(t, err)

	ids := make([]string, len(list))
	for i, inv := range list {
		ids[i] = inv.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
