package metrics

import (
	"context"
	"time"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Provider decorates a StorageProvider with operation counters and latency
// histograms. It does not change results.
type Provider struct {
	next types.StorageProvider
	c    *Collector
}

// Wrap returns next instrumented with c.
func Wrap(next types.StorageProvider, c *Collector) *Provider {
	return &Provider{next: next, c: c}
}

// Unwrap returns the decorated provider.
func (p *Provider) Unwrap() types.StorageProvider {
	return p.next
}

func (p *Provider) observe(op string, start time.Time, err error) {
	result := ResultOK
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNotFound):
		result = ResultNotFound
	default:
		result = ResultError
	}
	p.c.StorageOperations.WithLabelValues(op, result).Inc()
	p.c.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Store records op "store".
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	start := time.Now()
	handle, err := p.next.Store(ctx, id, data)
	p.observe("store", start, err)
	return handle, err
}

// Retrieve records op "retrieve".
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	start := time.Now()
	data, err := p.next.Retrieve(ctx, id)
	p.observe("retrieve", start, err)
	return data, err
}

// Update records op "update".
func (p *Provider) Update(ctx context.Context, id, data string) error {
	start := time.Now()
	err := p.next.Update(ctx, id, data)
	p.observe("update", start, err)
	return err
}

// Delete records op "delete".
func (p *Provider) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := p.next.Delete(ctx, id)
	p.observe("delete", start, err)
	return err
}

// ListAll records op "list_all".
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := p.next.ListAll(ctx)
	p.observe("list_all", start, err)
	return ids, err
}

// History records op "history". It fails with ErrUnsupported when the
// decorated provider keeps no history.
func (p *Provider) History(ctx context.Context, id string) ([]types.Version, error) {
	h, ok := p.next.(types.Historian)
	if !ok {
		return nil, errors.Wrapf(types.ErrUnsupported, "history of %s", id)
	}
	start := time.Now()
	versions, err := h.History(ctx, id)
	p.observe("history", start, err)
	return versions, err
}

// Close closes the decorated provider when it has a Close method.
func (p *Provider) Close() error {
	if c, ok := p.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
