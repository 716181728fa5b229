package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks Redis connectivity — the KV fast path both services
// depend on for token lookups, duplicate suppression, and velocity tracking.
type RedisChecker struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client, timeout time.Duration) *RedisChecker {
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &RedisChecker{
		client:  client,
		timeout: timeout,
	}
}

// Check performs the Redis health check.
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pingResult, err := c.client.Ping(ctx).Result()
	if err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}

	if pingResult != "PONG" {
		return NewUnhealthyResult("redis", nil).
			WithDuration(time.Since(start)).
			WithMetadata("error", "unexpected ping response")
	}

	testKey := "__health_check__"
	testValue := time.Now().Unix()

	if err := c.client.Set(ctx, testKey, testValue, 10*time.Second).Err(); err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}

	val, err := c.client.Get(ctx, testKey).Int64()
	if err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}

	if val != testValue {
		return NewUnhealthyResult("redis", nil).
			WithDuration(time.Since(start)).
			WithMetadata("error", "data integrity check failed")
	}

	c.client.Del(ctx, testKey)

	return NewHealthyResult("redis", "connected").WithDuration(time.Since(start))
}

// Name returns the checker name.
func (c *RedisChecker) Name() string {
	return "redis"
}
