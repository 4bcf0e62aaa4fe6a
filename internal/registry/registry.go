// Package registry maps owner ids to the network endpoints where they can be
// queried.
package registry

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Registry is the owner directory.
type Registry interface {
	// RegisterOwner upserts the record for id.
	RegisterOwner(ctx context.Context, id, name, endpoint string) error
	// GetOwnerEndpoint fails with ErrNotFound when id is unknown.
	GetOwnerEndpoint(ctx context.Context, id string) (string, error)
	ListAllOwners(ctx context.Context) ([]types.OwnerInfo, error)
	// FindOwnerByName returns nil when no owner has that name.
	FindOwnerByName(ctx context.Context, name string) (*types.OwnerInfo, error)
}

// StoreRegistry keeps OwnerInfo records as JSON in a StorageProvider. Give it
// its own namespace so owner ids cannot collide with concept ids.
type StoreRegistry struct {
	store types.StorageProvider
	log   *zap.SugaredLogger
}

var _ Registry = (*StoreRegistry)(nil)

// NewStoreRegistry returns a registry over store.
func NewStoreRegistry(store types.StorageProvider) *StoreRegistry {
	return &StoreRegistry{
		store: store,
		log:   logger.ComponentLogger("registry"),
	}
}

// RegisterOwner validates and upserts the record for id.
func (r *StoreRegistry) RegisterOwner(ctx context.Context, id, name, endpoint string) error {
	info := types.OwnerInfo{ID: id, Name: name, Endpoint: endpoint}
	if err := info.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "encode owner info")
	}
	if _, err := r.store.Store(ctx, id, string(data)); err != nil {
		return errors.Wrapf(err, "register owner %s", id)
	}
	r.log.Infow("Registered owner",
		logger.FieldOwnerID, id,
		logger.FieldName, name,
		logger.FieldEndpoint, endpoint)
	return nil
}

func (r *StoreRegistry) get(ctx context.Context, id string) (types.OwnerInfo, error) {
	data, err := r.store.Retrieve(ctx, id)
	if err != nil {
		return types.OwnerInfo{}, errors.Wrapf(err, "owner %s", id)
	}
	var info types.OwnerInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return types.OwnerInfo{}, errors.Mark(errors.Wrapf(err, "decode owner %s", id), types.ErrDeserialization)
	}
	return info, nil
}

// GetOwnerEndpoint fails with ErrNotFound for an unknown id.
func (r *StoreRegistry) GetOwnerEndpoint(ctx context.Context, id string) (string, error) {
	info, err := r.get(ctx, id)
	if err != nil {
		return "", err
	}
	return info.Endpoint, nil
}

// ListAllOwners returns every record sorted by id. Records that vanish or
// fail to decode are skipped.
func (r *StoreRegistry) ListAllOwners(ctx context.Context) ([]types.OwnerInfo, error) {
	ids, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list owners")
	}
	owners := make([]types.OwnerInfo, 0, len(ids))
	for _, id := range ids {
		info, err := r.get(ctx, id)
		if errors.IsAny(err, types.ErrNotFound, types.ErrDeserialization) {
			r.log.Warnw("Skipping owner record", logger.FieldOwnerID, id, logger.FieldError, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		owners = append(owners, info)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ID < owners[j].ID })
	return owners, nil
}

// FindOwnerByName matches names case-insensitively.
func (r *StoreRegistry) FindOwnerByName(ctx context.Context, name string) (*types.OwnerInfo, error) {
	owners, err := r.ListAllOwners(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range owners {
		if strings.EqualFold(o.Name, name) {
			return &o, nil
		}
	}
	return nil, nil
}
