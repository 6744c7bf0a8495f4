package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow/store"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available, skipping: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStoreSatisfiesContract(t *testing.T) {
	client := newTestRedisClient(t)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	exerciseStoreContract(t, store.NewRedisStore(client, time.Minute))
}

func TestRedisStoreTTLIsOptIn(t *testing.T) {
	client := newTestRedisClient(t)
	require.NoError(t, client.FlushDB(context.Background()).Err())

	s := store.NewRedisStore(client, 0)
	require.NoError(t, s.BeginExecution(context.Background(), "ttl-exec"))

	ttl, err := client.TTL(context.Background(), "ttl-exec").Result()
	require.NoError(t, err)
	require.Equal(t, time.Duration(-1), ttl, "TTL of 0 must leave keys without expiry")
}
