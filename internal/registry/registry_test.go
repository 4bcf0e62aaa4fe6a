package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/storage/memory"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func TestRegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewStoreRegistry(memory.New())

	require.NoError(t, r.RegisterOwner(ctx, "o1", "Alice", "http://alice.local:8080"))

	endpoint, err := r.GetOwnerEndpoint(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "http://alice.local:8080", endpoint)

	// Re-registering moves the endpoint.
	require.NoError(t, r.RegisterOwner(ctx, "o1", "Alice", "http://alice.remote:9090"))
	endpoint, err = r.GetOwnerEndpoint(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "http://alice.remote:9090", endpoint)
}

func TestGetOwnerEndpointUnknown(t *testing.T) {
	r := NewStoreRegistry(memory.New())
	_, err := r.GetOwnerEndpoint(context.Background(), "ghost")
	assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
}

func TestRegisterOwnerValidation(t *testing.T) {
	ctx := context.Background()
	r := NewStoreRegistry(memory.New())

	tests := []struct {
		name               string
		id, owner, address string
	}{
		{"empty id", "", "Alice", "http://a"},
		{"empty name", "o1", "", "http://a"},
		{"empty endpoint", "o1", "Alice", ""},
		{"endpoint not a url", "o1", "Alice", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RegisterOwner(ctx, tt.id, tt.owner, tt.address)
			assert.True(t, errors.Is(err, types.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestListAllOwnersSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewStoreRegistry(store)

	require.NoError(t, r.RegisterOwner(ctx, "o2", "Bob", "http://bob"))
	require.NoError(t, r.RegisterOwner(ctx, "o1", "Alice", "http://alice"))
	_, err := store.Store(ctx, "o3", "garbage")
	require.NoError(t, err)

	owners, err := r.ListAllOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.OwnerInfo{
		{ID: "o1", Name: "Alice", Endpoint: "http://alice"},
		{ID: "o2", Name: "Bob", Endpoint: "http://bob"},
	}, owners)
}

func TestFindOwnerByName(t *testing.T) {
	ctx := context.Background()
	r := NewStoreRegistry(memory.New())
	require.NoError(t, r.RegisterOwner(ctx, "o1", "Alice", "http://alice"))

	found, err := r.FindOwnerByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "o1", found.ID)

	missing, err := r.FindOwnerByName(ctx, "Carol")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
