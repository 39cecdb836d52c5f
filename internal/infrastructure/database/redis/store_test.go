package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/infrastructure/kv"
)

// setupTestRedis creates a miniredis server and a Store pointing at it
func setupTestRedis(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, prefix), mr
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t, kv.SessionPrefix("abc"))

	_, err := store.Get(context.Background(), "cart_v1")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_SetWritesPrefixedKeyWithoutTTL(t *testing.T) {
	store, mr := setupTestRedis(t, kv.SessionPrefix("abc"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cart_v1", `{"p1":2}`))

	raw, err := mr.Get("cart:session:abc:cart_v1")
	require.NoError(t, err)
	assert.Equal(t, `{"p1":2}`, raw)
	assert.Zero(t, mr.TTL("cart:session:abc:cart_v1"))

	got, err := store.Get(ctx, "cart_v1")
	require.NoError(t, err)
	assert.Equal(t, `{"p1":2}`, got)
}

func TestStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t, "")
	mr.Close()

	err := store.Set(context.Background(), "cart_v1", "{}")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)

	_, err = store.Get(context.Background(), "cart_v1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
}
