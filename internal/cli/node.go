package cli

import (
	"context"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/concept"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/registry"
	"github.com/mesh-intelligence/concepts/internal/storage/metrics"
	"github.com/mesh-intelligence/concepts/pkg/storage"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// node bundles the components a command needs. Close releases every
// opened backend.
type node struct {
	concepts storage.Provider
	manager  *concept.Manager
	registry registry.Registry
	closers  []func() error
}

func (n *node) Close() error {
	var first error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openNode opens the concept store and the registry. With registry.url set
// the registry is the remote service; otherwise it lives in the registry
// namespace of the configured backend. A non-nil collector instruments both
// stores.
func (a *app) openNode(ctx context.Context, collector *metrics.Collector) (*node, error) {
	cfg, err := a.storageConfig()
	if err != nil {
		return nil, err
	}
	var opts []storage.Option
	if collector != nil {
		opts = append(opts, storage.WithMetrics(collector))
	}

	store, err := storage.Open(ctx, cfg, storage.NamespaceConcepts, opts...)
	if err != nil {
		return nil, err
	}
	n := &node{
		concepts: store,
		manager:  concept.NewManager(store),
		closers:  []func() error{store.Close},
	}

	if url := a.v.GetString(cfgKeyRegistryURL); url != "" {
		n.registry = registry.NewHTTPClient(url, cfg.Timeout())
		return n, nil
	}
	regStore, err := storage.Open(ctx, cfg, storage.NamespaceRegistry, opts...)
	if err != nil {
		n.Close()
		return nil, err
	}
	n.closers = append(n.closers, regStore.Close)
	n.registry = registry.NewStoreRegistry(regStore)
	return n, nil
}

// withNode opens a node, runs fn and closes the node.
func (a *app) withNode(ctx context.Context, fn func(n *node) error) error {
	n, err := a.openNode(ctx, nil)
	if err != nil {
		return err
	}
	defer n.Close()
	return fn(n)
}

// ownerID returns the owner this node acts as.
func (a *app) ownerID() (string, error) {
	st, err := a.state().Load()
	if err != nil {
		return "", err
	}
	return st.OwnerID, nil
}

// communication returns an OwnerCommunication acting for the local owner.
func (a *app) communication(n *node) (*comm.OwnerCommunication, error) {
	ownerID, err := a.ownerID()
	if err != nil {
		return nil, err
	}
	return comm.NewOwnerCommunication(n.manager, ownerID), nil
}

// mustConcept loads id and fails with ErrNotFound when it is absent.
func mustConcept(ctx context.Context, n *node, id string) (*types.Concept, error) {
	c, err := n.manager.GetConcept(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Wrapf(types.ErrNotFound, "concept %s", id)
	}
	return c, nil
}
