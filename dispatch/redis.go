package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher publishes envelopes onto a Redis list: LPUSH on the
// publish side, BRPOP on the subscribe side. A subscriber goroutine
// (started via Subscribe) pops entries and calls a bound Sink. Envelopes
// wait in the list across process restarts until popped, but BRPOP
// removes an envelope before the sink runs: one whose sink call fails, or
// whose subscriber stops before the sink finishes, is not redelivered.
type RedisDispatcher struct {
	client *redis.Client
	queue  string
}

// NewRedisDispatcher wraps an existing client; queue is the list key
// envelopes are pushed to and popped from.
func NewRedisDispatcher(client *redis.Client, queue string) *RedisDispatcher {
	return &RedisDispatcher{client: client, queue: queue}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, rawPayload []byte, _ any) error {
	if err := d.client.LPush(ctx, d.queue, rawPayload).Err(); err != nil {
		return fmt.Errorf("redis dispatch: %w", err)
	}
	return nil
}

// Subscribe runs a blocking BRPOP loop against the queue, invoking sink
// for each popped envelope, until ctx is cancelled or the sink returns an
// error (which Subscribe then returns, wrapped). One BRPOP call per
// iteration with a bounded timeout so cancellation is checked between
// pops.
func (d *RedisDispatcher) Subscribe(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := d.client.BRPop(ctx, 5*time.Second, d.queue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis subscribe: %w", err)
		}
		if len(res) < 2 {
			continue
		}
		if err := sink(ctx, []byte(res[1])); err != nil {
			return fmt.Errorf("redis subscribe: sink: %w", err)
		}
	}
}

var _ Dispatcher = (*RedisDispatcher)(nil)
