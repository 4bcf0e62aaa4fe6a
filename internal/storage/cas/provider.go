// Package cas implements a content-addressed StorageProvider as two layers:
// an immutable BlobStore (bytes -> hash) and a mutable PointerIndex
// (id -> hash). Identity is the stable id; content and its hash change with
// every update, and old blobs stay addressable by hash.
package cas

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Provider composes a BlobStore and a PointerIndex into a StorageProvider.
type Provider struct {
	blobs types.BlobStore
	index types.PointerIndex
	log   *zap.SugaredLogger
}

// New returns a provider over the given layers.
func New(blobs types.BlobStore, index types.PointerIndex) *Provider {
	return &Provider{
		blobs: blobs,
		index: index,
		log:   logger.ComponentLogger("storage.cas"),
	}
}

// Open returns a file-backed provider rooted at dir: blobs under dir/blobs
// and the pointer index at dir/index.json.
func Open(dir string) (*Provider, error) {
	if dir == "" {
		return nil, types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create cas dir %s", dir)
	}
	return New(
		NewFileBlobStore(filepath.Join(dir, "blobs")),
		NewFileIndex(filepath.Join(dir, "index.json")),
	), nil
}

// Store writes the blob, then moves the pointer. The handle is the content
// hash. A failure between the two steps leaves an orphan blob and the old
// pointer, so retrying is safe.
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	hash, err := p.blobs.Put(ctx, []byte(data))
	if err != nil {
		return "", err
	}
	if err := p.index.Set(ctx, id, hash, changeMessage(ctx, "Stored "+id)); err != nil {
		return "", errors.Wrapf(err, "point %s at %s", id, hash)
	}
	p.log.Debugw("Stored", logger.FieldConceptID, id, logger.FieldHandle, hash)
	return hash, nil
}

// Retrieve follows the pointer for id.
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	hash, err := p.index.Get(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := p.blobs.Get(ctx, hash)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", id)
	}
	return string(data), nil
}

// Update aliases Store.
func (p *Provider) Update(ctx context.Context, id, data string) error {
	_, err := p.Store(ctx, id, data)
	return err
}

// Delete removes the pointer. The blob remains in the append-only store.
func (p *Provider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return p.index.Remove(ctx, id, changeMessage(ctx, "Deleted "+id))
}

// History returns every recorded change to id, oldest first. Old handles
// stay readable through Blob.
func (p *Provider) History(ctx context.Context, id string) ([]types.Version, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return p.index.History(ctx, id)
}

func changeMessage(ctx context.Context, fallback string) string {
	if msg, ok := types.ChangeMessage(ctx); ok && msg != "" {
		return msg
	}
	return fallback
}

// ListAll returns every id in the index.
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	return p.index.IDs(ctx)
}

// Handle returns the content hash id currently points to.
func (p *Provider) Handle(ctx context.Context, id string) (string, error) {
	return p.index.Get(ctx, id)
}

// Blob returns content by hash, including content no id points to anymore.
func (p *Provider) Blob(ctx context.Context, hash string) (string, error) {
	data, err := p.blobs.Get(ctx, hash)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close is a no-op; every write is already durable.
func (p *Provider) Close() error { return nil }
