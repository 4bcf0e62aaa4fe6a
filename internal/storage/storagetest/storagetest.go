// Package storagetest is the contract suite every types.StorageProvider
// implementation runs in its own tests.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Factory returns an empty provider. Cleanup belongs in t.Cleanup.
type Factory func(t *testing.T) types.StorageProvider

// Run executes the contract suite against providers built by newProvider.
func Run(t *testing.T, newProvider Factory) {
	t.Helper()

	t.Run("store then retrieve", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		_, err := p.Store(ctx, "a", `{"v":1}`)
		require.NoError(t, err)

		got, err := p.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, `{"v":1}`, got)
	})

	t.Run("idempotent store", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		h1, err := p.Store(ctx, "a", "data")
		require.NoError(t, err)
		h2, err := p.Store(ctx, "a", "data")
		require.NoError(t, err)
		assert.Equal(t, h1, h2, "same data must yield the same handle")

		got, err := p.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "data", got)

		ids, err := p.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids)
	})

	t.Run("last write wins", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		_, err := p.Store(ctx, "a", "data1")
		require.NoError(t, err)
		_, err = p.Store(ctx, "a", "data2")
		require.NoError(t, err)

		got, err := p.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "data2", got)

		require.NoError(t, p.Update(ctx, "a", "data3"))
		got, err = p.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "data3", got)
	})

	t.Run("update creates when absent", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		require.NoError(t, p.Update(ctx, "fresh", "x"))
		got, err := p.Retrieve(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "x", got)
	})

	t.Run("retrieve missing", func(t *testing.T) {
		p := newProvider(t)
		_, err := p.Retrieve(context.Background(), "missing")
		assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
	})

	t.Run("delete then retrieve", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		_, err := p.Store(ctx, "a", "data")
		require.NoError(t, err)
		require.NoError(t, p.Delete(ctx, "a"))

		_, err = p.Retrieve(ctx, "a")
		assert.True(t, errors.Is(err, types.ErrNotFound), "retrieve after delete: %v", err)

		err = p.Delete(ctx, "a")
		assert.True(t, errors.Is(err, types.ErrNotFound), "second delete: %v", err)

		ids, err := p.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("store after delete", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		_, err := p.Store(ctx, "a", "one")
		require.NoError(t, err)
		require.NoError(t, p.Delete(ctx, "a"))
		_, err = p.Store(ctx, "a", "two")
		require.NoError(t, err)

		got, err := p.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "two", got)
	})

	t.Run("list all", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		want := []string{"c", "a", "b"}
		for _, id := range want {
			_, err := p.Store(ctx, id, "data-"+id)
			require.NoError(t, err)
		}

		ids, err := p.ListAll(ctx)
		require.NoError(t, err)
		sort.Strings(ids)
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		_, err := p.Store(ctx, "", "data")
		assert.True(t, errors.Is(err, types.ErrInvalidID), "store: %v", err)
		_, err = p.Retrieve(ctx, "")
		assert.True(t, errors.Is(err, types.ErrInvalidID), "retrieve: %v", err)
		err = p.Delete(ctx, "")
		assert.True(t, errors.Is(err, types.ErrInvalidID), "delete: %v", err)
	})

	t.Run("opaque data", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		data := "line one\nline two\t\"quoted\" ✓"
		_, err := p.Store(ctx, "weird/id with spaces", data)
		require.NoError(t, err)

		got, err := p.Retrieve(ctx, "weird/id with spaces")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		p := newProvider(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := p.Store(ctx, fmt.Sprintf("id-%d", i), fmt.Sprintf("data-%d", i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		ids, err := p.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 8)
	})
}
