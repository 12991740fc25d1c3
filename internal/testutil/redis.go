//go:build integration

package testutil

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisConnection holds the connection details of a containerised Redis.
type RedisConnection struct {
	Client  *redis.Client
	Options *redis.Options
	URL     string
}

// NewRedisContainer starts a Redis container for tests that need real Redis semantics, such as
// the Lua scripts Asynq runs. The container and client are released when the test completes.
func NewRedisContainer(t *testing.T) *RedisConnection {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get Redis connection string: %v", err)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("failed to parse Redis url %s: %v", url, err)
	}

	client := redis.NewClient(opts)

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close Redis client: %v", err)
		}
	})

	return &RedisConnection{
		Client:  client,
		Options: opts,
		URL:     url,
	}
}
