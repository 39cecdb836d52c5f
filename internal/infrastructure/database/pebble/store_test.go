package pebble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/infrastructure/kv"
)

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Get(ctx, "cart_v1")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart_v1", `{"p4":1}`))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "cart_v1")
	require.NoError(t, err)
	assert.Equal(t, `{"p4":1}`, got)
}

func TestStore_WorksBehindPrefix(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	scoped := kv.Prefixed{Store: s, Prefix: "session:x:"}
	require.NoError(t, scoped.Set(ctx, "cart_v1", "{}"))

	raw, err := s.Get(ctx, "session:x:cart_v1")
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}
