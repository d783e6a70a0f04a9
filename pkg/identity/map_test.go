package identity_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/identity"
)

func TestMap_ResolveIsStable(t *testing.T) {
	ctx := context.Background()
	ids := identity.NewMap(identity.NewMemoryStore())

	first, err := ids.Resolve(ctx, "posts", 42)
	require.NoError(t, err)
	assert.True(t, identity.IsStableID(first), "unexpected id shape %q", first)

	for i := 0; i < 5; i++ {
		again, err := ids.Resolve(ctx, "posts", 42)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Same row id in another table is another entity.
	term, err := ids.Resolve(ctx, "terms", 42)
	require.NoError(t, err)
	assert.NotEqual(t, first, term)
}

func TestMap_ReverseResolve(t *testing.T) {
	ctx := context.Background()
	ids := identity.NewMap(identity.NewMemoryStore())

	id, err := ids.Resolve(ctx, "terms", 7)
	require.NoError(t, err)

	row, err := ids.ReverseResolve(ctx, "terms", id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row)

	_, err = ids.ReverseResolve(ctx, "terms", "00000000000000000000000000000000")
	assert.ErrorIs(t, err, core.ErrIdentityMiss)

	_, err = ids.ReverseResolve(ctx, "posts", id)
	assert.ErrorIs(t, err, core.ErrIdentityMiss, "stable ids are scoped by kind")
}

func TestMap_ForgetNeverReuses(t *testing.T) {
	ctx := context.Background()
	ids := identity.NewMap(identity.NewMemoryStore())

	old, err := ids.Resolve(ctx, "posts", 1)
	require.NoError(t, err)

	require.NoError(t, ids.Forget(ctx, "posts", 1))

	_, ok, err := ids.Lookup(ctx, "posts", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ids.ReverseResolve(ctx, "posts", old)
	assert.ErrorIs(t, err, core.ErrIdentityMiss)

	fresh, err := ids.Resolve(ctx, "posts", 1)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	// Forgetting an unknown row is not an error.
	require.NoError(t, ids.Forget(ctx, "posts", 999))
}

func TestMap_RegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := identity.NewMemoryStore()

	tokens := []string{
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
	}
	next := 0
	gen := func() (string, error) {
		tok := tokens[next]
		next++
		return tok, nil
	}
	ids := identity.NewMap(store, identity.WithGenerator(gen))

	a, err := ids.Resolve(ctx, "posts", 1)
	require.NoError(t, err)
	b, err := ids.Resolve(ctx, "posts", 2)
	require.NoError(t, err)

	assert.Equal(t, tokens[0], a)
	assert.Equal(t, tokens[2], b)
	assert.Equal(t, 2, store.Len())
}

func TestMap_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	store := identity.NewMemoryStore()
	gen := func() (string, error) { return "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", nil }
	ids := identity.NewMap(store, identity.WithGenerator(gen))

	_, err := ids.Resolve(ctx, "posts", 1)
	require.NoError(t, err)

	_, err = ids.Resolve(ctx, "posts", 2)
	assert.ErrorIs(t, err, core.ErrStableIDCollision)
}

func TestMap_ConcurrentFirstLookupConverges(t *testing.T) {
	ctx := context.Background()
	ids := identity.NewMap(identity.NewMemoryStore())

	const workers = 16
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := ids.Resolve(ctx, "comments", 3)
			if err != nil {
				results[i] = fmt.Sprintf("error: %v", err)
				return
			}
			results[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
}

func TestNewStableID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := identity.NewStableID()
		require.NoError(t, err)
		require.True(t, identity.IsStableID(id), "bad id %q", id)
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}

	assert.False(t, identity.IsStableID("abc"))
	assert.False(t, identity.IsStableID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
}
