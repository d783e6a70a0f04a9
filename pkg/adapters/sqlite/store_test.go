package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rowgit/pkg/adapters/sqlite"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/identity"
)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_InsertAndLookup(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	_, ok, err := store.Lookup(ctx, "posts", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := store.Insert(ctx, "posts", 1, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", id)

	// A second assignment for the same row loses to the stored one.
	id, err = store.Insert(ctx, "posts", 1, "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", id)

	row, ok, err := store.LookupVolatile(ctx, "posts", id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), row)
}

func TestStore_Collision(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	_, err := store.Insert(ctx, "posts", 1, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)

	_, err = store.Insert(ctx, "terms", 9, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	assert.ErrorIs(t, err, core.ErrStableIDCollision)
}

func TestStore_RetireKeepsStableID(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	_, err := store.Insert(ctx, "posts", 5, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	require.NoError(t, store.RemoveByVolatileID(ctx, "posts", 5))

	_, ok, err := store.Lookup(ctx, "posts", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.LookupVolatile(ctx, "posts", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	assert.False(t, ok)

	// The retired id can not be assigned to another row.
	_, err = store.Insert(ctx, "posts", 6, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	assert.ErrorIs(t, err, core.ErrStableIDCollision)

	// Several retired rows may coexist.
	_, err = store.Insert(ctx, "posts", 5, "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	require.NoError(t, err)
	require.NoError(t, store.RemoveByVolatileID(ctx, "posts", 5))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openStore(t)

	ids := identity.NewMap(store)
	id, err := ids.Resolve(ctx, "terms", 12)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	again, err := identity.NewMap(reopened).Resolve(ctx, "terms", 12)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
