// Package redis implements a StorageProvider on a Redis server.
//
// Each item is a string key <prefix>:item:<id>; the set <prefix>:ids tracks
// live ids so ListAll never needs KEYS or SCAN. Both keys change in one
// MULTI/EXEC transaction.
package redis

import (
	"context"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

const dialTimeout = 5 * time.Second

// Provider is the Redis-backed StorageProvider.
type Provider struct {
	rdb    *goredis.Client
	prefix string
	log    *zap.SugaredLogger
}

// Open connects to addr and verifies the server with PING. prefix scopes
// every key, which keeps namespaces apart on a shared server.
func Open(ctx context.Context, addr, prefix string) (*Provider, error) {
	if addr == "" {
		return nil, types.ErrRedisAddrEmpty
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.WithHintf(
			errors.Wrapf(err, "redis ping %s", addr),
			"check that a Redis server is listening on %s", addr,
		)
	}

	log := logger.ComponentLogger("storage.redis")
	log.Debugw("Connected", logger.FieldAddress, addr, logger.FieldNamespace, prefix)
	return &Provider{rdb: rdb, prefix: prefix, log: log}, nil
}

func (p *Provider) itemKey(id string) string { return p.prefix + ":item:" + id }
func (p *Provider) idsKey() string          { return p.prefix + ":ids" }

// Store sets the item and adds id to the id set. The handle is id.
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.itemKey(id), data, 0)
		pipe.SAdd(ctx, p.idsKey(), id)
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "storing item %s", id)
	}
	return id, nil
}

// Retrieve returns the data stored under id.
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	data, err := p.rdb.Get(ctx, p.itemKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading item %s", id)
	}
	return data, nil
}

// Update aliases Store.
func (p *Provider) Update(ctx context.Context, id, data string) error {
	_, err := p.Store(ctx, id, data)
	return err
}

// Delete removes the item and its id set entry.
func (p *Provider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	var del *goredis.IntCmd
	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, p.itemKey(id))
		pipe.SRem(ctx, p.idsKey(), id)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "deleting item %s", id)
	}
	if del.Val() == 0 {
		return errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
	}
	return nil
}

// ListAll returns the members of the id set, sorted.
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	ids, err := p.rdb.SMembers(ctx, p.idsKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing items")
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the client's connection pool.
func (p *Provider) Close() error {
	return p.rdb.Close()
}
