package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the process-wide Redis connection pool. PoolSize
// bounds concurrent KV connections the way the durable store's
// MaxOpenConns bounds Postgres connections.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// RedisClient implements Client against a single Redis node using
// go-redis/v9, the same client version pkg/ratelimit's distributed limiter
// uses.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient dials Redis and verifies connectivity before returning.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 30
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("kv: failed to connect to redis: %w", err)
	}

	return &RedisClient{rdb: rdb}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisClient) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *RedisClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (c *RedisClient) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	return c.rdb.ZCount(ctx, key, formatScore(min), formatScore(max)).Result()
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the raw go-redis client for components (health
// checker, rate limiter) that need the native client rather than this
// package's narrower Client contract.
func (c *RedisClient) Underlying() *redis.Client {
	return c.rdb
}

func formatScore(f float64) string {
	return fmt.Sprintf("%f", f)
}
