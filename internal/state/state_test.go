package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func TestSaveLoad(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nested", "state.json"))
	assert.False(t, m.Exists())

	require.NoError(t, m.Save(State{OwnerID: "o1", OwnerName: "Alice"}))
	assert.True(t, m.Exists())

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, State{OwnerID: "o1", OwnerName: "Alice"}, got)

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ownerId": "o1"`)
}

func TestLoadNotInitialized(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "state.json"))

	_, err := m.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotInitialized))
	assert.Equal(t, []string{InitHint}, errors.GetAllHints(err))
}

func TestLoadEmptyOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ownerId":""}`), 0o600))

	_, err := NewManager(path).Load()
	assert.True(t, errors.Is(err, types.ErrNotInitialized))
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{oops`), 0o600))

	_, err := NewManager(path).Load()
	assert.True(t, errors.Is(err, types.ErrDeserialization))
}

func TestSaveRequiresOwner(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "state.json"))
	err := m.Save(State{})
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	assert.False(t, m.Exists())
}
