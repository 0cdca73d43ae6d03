//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Integration tests require a reachable Redis.
// Run with: REDIS_URL=redis://... go test -tags integration -v ./internal/repository/redis/

func newIntegrationClient(t *testing.T) *goredis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	return client
}

func TestIntegration_AcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	client := newIntegrationClient(t)
	leases := NewRedisLeaseStore(client, time.Minute)
	key := "job:it-" + uuid.NewString()
	t.Cleanup(func() { leases.Drop(ctx, key) })

	ok, err := leases.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = leases.Acquire(ctx, key)
	if err != nil || ok {
		t.Fatalf("second acquire: expected (false, nil), got (%v, %v)", ok, err)
	}

	ttl, err := client.TTL(ctx, leaseKeyPrefix+key).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected a TTL within the lease duration, got %s", ttl)
	}
}

func TestIntegration_ReleaseShortensTTL(t *testing.T) {
	ctx := context.Background()
	client := newIntegrationClient(t)
	leases := NewRedisLeaseStore(client, time.Hour)
	key := "job:it-" + uuid.NewString()
	t.Cleanup(func() { leases.Drop(ctx, key) })

	if ok, err := leases.Acquire(ctx, key); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if err := leases.Release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}

	ttl, err := client.TTL(ctx, leaseKeyPrefix+key).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > releaseGrace {
		t.Errorf("expected TTL within the release grace, got %s", ttl)
	}

	// Still held until the grace period lapses.
	if ok, _ := leases.Acquire(ctx, key); ok {
		t.Error("expected released lease to stay held during grace")
	}
}

func TestIntegration_DropFreesImmediately(t *testing.T) {
	ctx := context.Background()
	leases := NewRedisLeaseStore(newIntegrationClient(t), time.Hour)
	key := "artifact:it-" + uuid.NewString()
	t.Cleanup(func() { leases.Drop(ctx, key) })

	if ok, err := leases.Acquire(ctx, key); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if err := leases.Drop(ctx, key); err != nil {
		t.Fatalf("drop: %v", err)
	}
	ok, err := leases.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("acquire after drop: ok=%v err=%v", ok, err)
	}
}
