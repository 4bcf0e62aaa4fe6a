// Package memory is an in-process StorageProvider backed by a map. Nothing
// survives the process; it serves tests and the node service's default.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Provider is a concurrency-safe in-memory StorageProvider.
type Provider struct {
	mu    sync.RWMutex
	items map[string]string
}

// New returns an empty provider.
func New() *Provider {
	return &Provider{items: make(map[string]string)}
}

// Store saves data under id. The handle is the id itself.
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items[id] = data
	return id, nil
}

// Retrieve returns the data stored under id.
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, ok := p.items[id]
	if !ok {
		return "", errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
	}
	return data, nil
}

// Update aliases Store.
func (p *Provider) Update(ctx context.Context, id, data string) error {
	_, err := p.Store(ctx, id, data)
	return err
}

// Delete removes id.
func (p *Provider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.items[id]; !ok {
		return errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
	}
	delete(p.items, id)
	return nil
}

// ListAll returns every stored id in ascending order.
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.items))
	for id := range p.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }
