package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/numbering"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultCounterKeyPrefix namespaces document sequence keys in Redis
const DefaultCounterKeyPrefix = "ledger:docseq:"

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisCounterStore implements numbering.CounterStore with Redis INCR.
// Suitable for multi-instance deployments that share one Redis.
type RedisCounterStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisCounterStore creates a store on an existing client
func NewRedisCounterStore(client redis.Cmdable, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = DefaultCounterKeyPrefix
	}
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix}
}

// IncrementAndGet implements numbering.CounterStore
func (s *RedisCounterStore) IncrementAndGet(ctx context.Context, prefix string) (int64, error) {
	value, err := s.client.Incr(ctx, s.keyPrefix+prefix).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		if isRetryableRedisError(err) {
			return 0, fmt.Errorf("%w: %v", numbering.ErrCounterContention, err)
		}
		return 0, fmt.Errorf("increment counter %s: %w", prefix, err)
	}
	return value, nil
}

// Current returns the last issued value for prefix, zero when none was issued
func (s *RedisCounterStore) Current(ctx context.Context, prefix string) (int64, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+prefix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", prefix, err)
	}
	return value, nil
}

// isRetryableRedisError reports server replies that clear up on their own
func isRetryableRedisError(err error) bool {
	var redisErr redis.Error
	if !errors.As(err, &redisErr) {
		return false
	}
	for _, prefix := range []string{"LOADING", "TRYAGAIN", "BUSY"} {
		if strings.HasPrefix(redisErr.Error(), prefix) {
			return true
		}
	}
	return false
}

// Ensure RedisCounterStore implements numbering.CounterStore
var _ numbering.CounterStore = (*RedisCounterStore)(nil)
