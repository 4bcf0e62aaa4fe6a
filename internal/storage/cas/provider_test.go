package cas

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/storage/storagetest"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func TestProviderContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) types.StorageProvider {
		p, err := Open(t.TempDir())
		require.NoError(t, err)
		return p
	})
}

func TestHashIsContentAddress(t *testing.T) {
	assert.Equal(t, Hash([]byte("same")), Hash([]byte("same")))
	assert.NotEqual(t, Hash([]byte("one")), Hash([]byte("two")))
}

func TestHandleFollowsContent(t *testing.T) {
	ctx := context.Background()
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	h1, err := p.Store(ctx, "a", "first")
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte("first")), h1)

	h2, err := p.Store(ctx, "a", "second")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	current, err := p.Handle(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, h2, current)

	// The superseded blob remains addressable.
	old, err := p.Blob(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, "first", old)
}

func TestDeleteKeepsBlob(t *testing.T) {
	ctx := context.Background()
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	h, err := p.Store(ctx, "a", "payload")
	require.NoError(t, err)
	require.NoError(t, p.Delete(ctx, "a"))

	_, err = p.Handle(ctx, "a")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	data, err := p.Blob(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "payload", data)
}

func TestIndexSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := Open(dir)
	require.NoError(t, err)
	_, err = p.Store(ctx, "a", "alpha")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	p, err = Open(dir)
	require.NoError(t, err)
	got, err := p.Retrieve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)

	_, err = os.Stat(filepath.Join(dir, "index.json"))
	assert.NoError(t, err)
}

func TestCorruptBlobDetected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := Open(dir)
	require.NoError(t, err)

	h, err := p.Store(ctx, "a", "original")
	require.NoError(t, err)

	path := filepath.Join(dir, "blobs", h[:2], h)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))

	_, err = p.Retrieve(ctx, "a")
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrNotFound))
	assert.Contains(t, err.Error(), "corrupt")
}

func TestBlobGetUnknownHash(t *testing.T) {
	s := NewFileBlobStore(t.TempDir())
	_, err := s.Get(context.Background(), Hash([]byte("never stored")))
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestHistoryRecordsEveryChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := Open(dir)
	require.NoError(t, err)

	h1, err := p.Store(types.WithChangeMessage(ctx, "Created concept: Widget"), "a", "v1")
	require.NoError(t, err)
	h2, err := p.Store(ctx, "a", "v2")
	require.NoError(t, err)
	require.NoError(t, p.Delete(types.WithChangeMessage(ctx, "Deleted concept with ID: a"), "a"))

	versions, err := p.History(ctx, "a")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, h1, versions[0].Handle)
	assert.Equal(t, "Created concept: Widget", versions[0].Message)
	assert.Equal(t, h2, versions[1].Handle)
	assert.Equal(t, "Stored a", versions[1].Message)
	assert.Empty(t, versions[2].Handle)
	assert.Equal(t, "Deleted concept with ID: a", versions[2].Message)
	assert.False(t, versions[0].At.After(versions[2].At))

	t.Run("old versions stay readable", func(t *testing.T) {
		old, err := p.Blob(ctx, versions[0].Handle)
		require.NoError(t, err)
		assert.Equal(t, "v1", old)
	})

	t.Run("history survives reopen", func(t *testing.T) {
		reopened, err := Open(dir)
		require.NoError(t, err)
		got, err := reopened.History(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := p.History(ctx, "never")
		assert.True(t, errors.Is(err, types.ErrNotFound))
	})
}

func TestIndexServesReadsFromMemory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")
	x := NewFileIndex(path)

	require.NoError(t, x.Set(ctx, "a", "hash-a", "set a"))
	require.NoError(t, os.Remove(path))

	got, err := x.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", got)

	// Writes go through to disk again.
	require.NoError(t, x.Set(ctx, "b", "hash-b", "set b"))
	fresh := NewFileIndex(path)
	ids, err := fresh.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestIndexFailedWriteDropsChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")
	x := NewFileIndex(path)
	require.NoError(t, x.Set(ctx, "a", "hash-a", "set a"))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)

	// A non-empty directory at the index path makes the rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))
	require.Error(t, x.Set(ctx, "b", "hash-b", "set b"))

	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, os.WriteFile(path, saved, 0o644))

	_, err = x.Get(ctx, "b")
	assert.True(t, errors.Is(err, types.ErrNotFound), "failed write must not stay visible")
	got, err := x.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", got)
}
