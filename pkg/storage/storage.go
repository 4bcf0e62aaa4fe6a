// Package storage opens the StorageProvider selected by configuration.
package storage

import (
	"context"
	"io"
	"path/filepath"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/storage/cas"
	"github.com/mesh-intelligence/concepts/internal/storage/memory"
	"github.com/mesh-intelligence/concepts/internal/storage/metrics"
	"github.com/mesh-intelligence/concepts/internal/storage/redis"
	"github.com/mesh-intelligence/concepts/internal/storage/remote"
	"github.com/mesh-intelligence/concepts/internal/storage/sqlite"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Keyspaces used by the node.
const (
	NamespaceConcepts = "concepts"
	NamespaceRegistry = "registry"
)

// Provider is a StorageProvider that holds resources until closed.
type Provider interface {
	types.StorageProvider
	io.Closer
}

// Option adjusts Open.
type Option func(*options)

type options struct {
	collector *metrics.Collector
}

// WithMetrics wraps the opened provider with the metrics decorator.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// Open validates cfg and opens its backend for namespace.
//
// Namespaces map to a separate sqlite database, a separate CAS directory and
// a separate redis key prefix. The remote backend addresses a single /items
// API, so namespaces must be separated by pointing at different services.
func Open(ctx context.Context, cfg types.Config, namespace string, opts ...Option) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Backend {
	case types.BackendMemory:
		p = memory.New()
	case types.BackendSQLite:
		p, err = sqlite.Open(ctx, cfg.DataDir, namespace)
	case types.BackendCAS:
		p, err = cas.Open(filepath.Join(cfg.DataDir, namespace))
	case types.BackendRedis:
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = "concepts"
		}
		p, err = redis.Open(ctx, cfg.Redis.Addr, prefix+":"+namespace)
	case types.BackendRemote:
		p, err = remote.New(cfg.Remote.URL, cfg.Timeout())
	default:
		return nil, errors.Wrapf(types.ErrBackendUnknown, "%q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s backend", cfg.Backend)
	}

	logger.ComponentLogger("storage").Debugw("Opened storage",
		logger.FieldBackend, cfg.Backend,
		logger.FieldNamespace, namespace)

	if o.collector != nil {
		return metrics.Wrap(p, o.collector), nil
	}
	return p, nil
}
