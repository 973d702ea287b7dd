// Package health provides readiness checks for the stores and remote
// collaborators the ranking service depends on.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks the profile cache backend.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{
		client: client,
	}
}

// HealthCheck sends a PING.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
