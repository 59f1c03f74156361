package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/cache"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

func newRelay(t *testing.T, addr string) (*InvalidationRelay, *cache.Store) {
	t.Helper()
	ps, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{Address: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	store := cache.NewStore(cache.NewMemoryBackend(clockwork.NewFakeClock()))
	return NewInvalidationRelay(ps, store), store
}

func TestInvalidationRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, storeA := newRelay(t, mr.Addr())
	b, storeB := newRelay(t, mr.Addr())
	assert.NotEqual(t, a.Origin(), b.Origin())

	go func() { _ = b.Run(ctx) }()

	const movieKey = "faveit:search:movie:0001"
	const bookKey = "faveit:search:book:0001"
	require.NoError(t, storeB.SetRaw(ctx, movieKey, []byte(`{}`), time.Hour))
	require.NoError(t, storeB.SetRaw(ctx, bookKey, []byte(`{}`), time.Hour))
	require.NoError(t, storeA.SetRaw(ctx, movieKey, []byte(`{}`), time.Hour))

	// The subscriber may not be ready yet, so keep announcing.
	assert.Eventually(t, func() bool {
		a.Publish(ctx, "faveit:search:movie:")
		_, ok := storeB.GetRaw(ctx, movieKey)
		return !ok
	}, 3*time.Second, 20*time.Millisecond)

	_, ok := storeB.GetRaw(ctx, bookKey)
	assert.True(t, ok, "other categories untouched")
	_, ok = storeA.GetRaw(ctx, movieKey)
	assert.True(t, ok, "the publisher does not apply its own event")
}

func TestInvalidationRelayIgnoresOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, storeA := newRelay(t, mr.Addr())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, storeA.SetRaw(ctx, "faveit:search:movie:1", []byte(`{}`), time.Hour))
	for i := 0; i < 5; i++ {
		a.Publish(ctx, "faveit:search:movie:")
		time.Sleep(10 * time.Millisecond)
	}

	_, ok := storeA.GetRaw(ctx, "faveit:search:movie:1")
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
