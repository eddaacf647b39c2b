package persist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// RedisClient is the subset of github.com/redis/go-redis/v9 used by
// RedisStore. A *redis.Client satisfies it through a thin adapter that
// returns the command values unchanged.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Get(ctx context.Context, key string) RedisStringCmd
	Del(ctx context.Context, keys ...string) RedisIntCmd
}

// RedisStatusCmd represents a Redis status command result.
type RedisStatusCmd interface {
	Err() error
}

// RedisStringCmd represents a Redis string command result.
type RedisStringCmd interface {
	Bytes() ([]byte, error)
	Err() error
}

// RedisIntCmd represents a Redis int command result.
type RedisIntCmd interface {
	Err() error
}

// ErrRedisNil matches the message of redis.Nil from go-redis.
var ErrRedisNil = errors.New("redis: nil")

// RedisStore is a Store backed by Redis. Expiry is delegated to key TTLs.
type RedisStore struct {
	client RedisClient
	prefix string
	closed atomic.Bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix. Default: "draftform:draft:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client RedisClient, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{prefix: "draftform:draft:"}
	for _, opt := range opts {
		opt(cfg)
	}
	return &RedisStore{client: client, prefix: cfg.prefix}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Save stores data with a TTL derived from expiresAt. An expiry in the past
// deletes the key instead.
func (r *RedisStore) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("persist: redis set %q: %w", key, err)
	}
	return nil
}

// Load returns the data under key, or (nil, nil) if Redis has no such key.
func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrStoreClosed
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: redis get %q: %w", key, err)
	}
	return data, nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("persist: redis del %q: %w", key, err)
	}
	return nil
}

// Close marks the store closed. The client is left open.
func (r *RedisStore) Close() error {
	r.closed.Store(true)
	return nil
}

// Prefix returns the key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}

func isRedisNil(err error) bool {
	return errors.Is(err, ErrRedisNil) || err.Error() == ErrRedisNil.Error()
}
