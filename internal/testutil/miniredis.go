package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredis starts an in-memory Redis that is closed when the test completes.
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	return miniredis.RunT(t)
}

// MiniredisURL returns a redis:// URL pointing at mr, as accepted by the redis config.
func MiniredisURL(mr *miniredis.Miniredis) string {
	return "redis://" + mr.Addr()
}

// NewMiniredisClient starts an in-memory Redis and a client connected to it. Both are closed
// when the test completes.
func NewMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := NewMiniredis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close miniredis client: %v", err)
		}
	})

	return mr, client
}
