package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPattern   = "storefront:checkout:%d:%s"
	pendingValue = "pending"
)

// RedisStore implements Store on Redis with SET NX. A claim lives for
// pendingTTL until Complete records the order for the full ttl, so a claim
// abandoned by a crashed request frees the key quickly.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	logger     zerolog.Logger
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl, pendingTTL time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}


	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger = logger.With().Str("component", "idempotency").Logger()
	logger.Info().
		Str("addr", opts.Addr).
		Dur("ttl", ttl).
		Dur("pending_ttl", pendingTTL).
		Msg("idempotency store connected")

	return &RedisStore{client: client, ttl: ttl, pendingTTL: pendingTTL, logger: logger}, nil
}

func redisKey(userID int64, key string) string {
	return fmt.Sprintf(keyPattern, userID, key)
}

// Begin claims the key or reports the order recorded under it.
func (s *RedisStore) Begin(ctx context.Context, userID int64, key string) (int64, error) {
	k := redisKey(userID, key)

	// A claim can expire between SETNX and GET; one retry covers that window.
	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := s.client.SetNX(ctx, k, pendingValue, s.pendingTTL).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if claimed {
			return 0, nil
		}

		value, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if value == pendingValue {
			return 0, ErrInProgress
		}

		orderID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt idempotency record %q: %w", value, err)
		}
		s.logger.Debug().Int64("user_id", userID).Int64("order_id", orderID).Msg("idempotency key replayed")
		return orderID, nil
	}

	return 0, ErrInProgress
}

// Complete records the order created under a claimed key.
func (s *RedisStore) Complete(ctx context.Context, userID int64, key string, orderID int64) error {
	if err := s.client.Set(ctx, redisKey(userID, key), strconv.FormatInt(orderID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// Release drops a pending claim. A completed record is left in place.
func (s *RedisStore) Release(ctx context.Context, userID int64, key string) error {
	k := redisKey(userID, key)
	value, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if value != pendingValue {
		return nil
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
