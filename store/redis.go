package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a remote key-value Store. It keeps one hash of
// in-progress markers and one hash of committed results per execution,
// plus a flag key marking the execution itself alive:
//
//	{executionId}-transactions   hash: taskPath -> "1"
//	{executionId}-results        hash: taskPath -> value
//	{executionId}                flag key, present iff the execution is in progress
type RedisStore struct {
	client *redis.Client
	// TTL, if non-zero, is applied to every write (flag key and both
	// hashes) so abandoned executions age out instead of leaking keys
	// forever.
	TTL time.Duration
}

// NewRedisStore wraps an existing *redis.Client. The caller owns the
// client's lifecycle (Close, connection pool sizing, TLS, auth).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, TTL: ttl}
}

func (s *RedisStore) flagKey(executionID string) string         { return executionID }
func (s *RedisStore) transactionsKey(executionID string) string { return executionID + "-transactions" }
func (s *RedisStore) resultsKey(executionID string) string      { return executionID + "-results" }

func (s *RedisStore) touchTTL(ctx context.Context, keys ...string) error {
	if s.TTL <= 0 {
		return nil
	}
	for _, k := range keys {
		if err := s.client.Expire(ctx, k, s.TTL).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) BeginExecution(ctx context.Context, executionID string) error {
	key := s.flagKey(executionID)
	if err := s.client.Set(ctx, key, "1", 0).Err(); err != nil {
		return fmt.Errorf("redis begin execution: %w", err)
	}
	return s.touchTTL(ctx, key)
}

func (s *RedisStore) IsExecutionInProgress(ctx context.Context, executionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.flagKey(executionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis is execution in progress: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) BeginExecutionTask(ctx context.Context, executionID, taskPath string) error {
	// Idempotent: HSetNX would refuse a second begin, but redelivery of
	// the same taskPath must succeed silently, so plain HSet is correct
	// here; only CommitExecutionTaskResult needs to be the one
	// irreversible transition.
	key := s.transactionsKey(executionID)
	if err := s.client.HSet(ctx, key, taskPath, "1").Err(); err != nil {
		return fmt.Errorf("redis begin execution task: %w", err)
	}
	return s.touchTTL(ctx, key)
}

func (s *RedisStore) IsExecutionTaskInProgress(ctx context.Context, executionID, taskPath string) (bool, error) {
	inProgress, err := s.client.HExists(ctx, s.transactionsKey(executionID), taskPath).Result()
	if err != nil {
		return false, fmt.Errorf("redis is execution task in progress: %w", err)
	}
	if !inProgress {
		return false, nil
	}
	committed, err := s.client.HExists(ctx, s.resultsKey(executionID), taskPath).Result()
	if err != nil {
		return false, fmt.Errorf("redis is execution task in progress: %w", err)
	}
	return !committed, nil
}

func (s *RedisStore) GetExecutionTaskResult(ctx context.Context, executionID, taskPath string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.resultsKey(executionID), taskPath).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get execution task result: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) CommitExecutionTaskResult(ctx context.Context, executionID, taskPath, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.resultsKey(executionID), taskPath, value)
	pipe.HDel(ctx, s.transactionsKey(executionID), taskPath)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis commit execution task result: %w", err)
	}
	return s.touchTTL(ctx, s.resultsKey(executionID))
}

func (s *RedisStore) DisposeExecution(ctx context.Context, executionID string) error {
	keys := []string{s.flagKey(executionID), s.transactionsKey(executionID), s.resultsKey(executionID)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis dispose execution: %w", err)
	}
	return nil
}

// GetExecutionTaskResults implements BulkPrefetcher via a single HGETALL.
func (s *RedisStore) GetExecutionTaskResults(ctx context.Context, executionID string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, s.resultsKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get execution task results: %w", err)
	}
	return m, nil
}

var _ Store = (*RedisStore)(nil)
var _ BulkPrefetcher = (*RedisStore)(nil)
