package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/storage/storagetest"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// redisAddr returns the server used for tests, skipping when none is set.
func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("CONCEPTS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONCEPTS_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestProviderContract(t *testing.T) {
	addr := redisAddr(t)
	n := 0
	storagetest.Run(t, func(t *testing.T) types.StorageProvider {
		n++
		prefix := fmt.Sprintf("concepts-test-%d-%d", time.Now().UnixNano(), n)
		p, err := Open(context.Background(), addr, prefix)
		require.NoError(t, err)
		t.Cleanup(func() {
			ctx := context.Background()
			ids, _ := p.ListAll(ctx)
			for _, id := range ids {
				_ = p.Delete(ctx, id)
			}
			p.Close()
		})
		return p
	})
}

func TestOpenRequiresAddr(t *testing.T) {
	_, err := Open(context.Background(), "", "concepts")
	assert.ErrorIs(t, err, types.ErrRedisAddrEmpty)
}

func TestOpenUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is reserved and never has a Redis server behind it.
	_, err := Open(ctx, "127.0.0.1:1", "concepts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestKeyLayout(t *testing.T) {
	p := &Provider{prefix: "concepts"}
	assert.Equal(t, "concepts:item:abc", p.itemKey("abc"))
	assert.Equal(t, "concepts:ids", p.idsKey())
}
