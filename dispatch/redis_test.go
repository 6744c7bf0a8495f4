package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow/dispatch"
)

// newTestRedisClient skips automatically when no Redis instance is
// reachable, rather than failing the whole suite.
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

func TestRedisDispatcherPublishAndSubscribeRoundTrip(t *testing.T) {
	client := newTestRedisClient(t)
	queue := "stepflow-test-dispatch"
	require.NoError(t, client.Del(context.Background(), queue).Err())

	d := dispatch.NewRedisDispatcher(client, queue)
	received := make(chan []byte, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = d.Subscribe(ctx, func(ctx context.Context, rawPayload []byte) error {
			received <- rawPayload
			return nil
		})
	}()

	require.NoError(t, d.Dispatch(context.Background(), []byte(`{"event":{"type":"foo"}}`), nil))

	select {
	case got := <-received:
		assert.Equal(t, `{"event":{"type":"foo"}}`, string(got))
	case <-time.After(3 * time.Second):
		t.Fatal("expected Subscribe to receive the dispatched envelope")
	}
}
