package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Harsh-BH/certqueue/internal/repository"
)

var _ repository.LeaseStore = (*redisLease)(nil)

const (
	leaseKeyPrefix = "certqueue:lease:"

	// releaseGrace is how long a released lease lingers before expiring.
	releaseGrace = time.Minute
)

type redisLease struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewRedisLeaseStore creates a Redis-backed lease store using SET NX with a TTL.
func NewRedisLeaseStore(client goredis.UniversalClient, ttl time.Duration) repository.LeaseStore {
	return &redisLease{client: client, ttl: ttl}
}

// Acquire uses Redis SETNX to atomically take the lease.
func (r *redisLease) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, leaseKeyPrefix+key, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	return ok, nil
}

// Release shortens the lease TTL for eventual cleanup.
func (r *redisLease) Release(ctx context.Context, key string) error {
	if err := r.client.Expire(ctx, leaseKeyPrefix+key, releaseGrace).Err(); err != nil {
		return fmt.Errorf("redis: release lease %s: %w", key, err)
	}
	return nil
}

func (r *redisLease) Drop(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, leaseKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: drop lease %s: %w", key, err)
	}
	return nil
}
