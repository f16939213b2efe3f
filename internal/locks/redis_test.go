package locks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when TEST_REDIS_ADDR is set
func redisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockerExcludesOtherInstances(t *testing.T) {
	client := redisClient(t)
	eventID := uuid.New()

	// two lockers stand in for two server processes
	a := NewRedisLocker(client, 5*time.Second)
	b := NewRedisLocker(client, 5*time.Second)

	h, err := a.Acquire(context.Background(), eventID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Acquire(ctx, eventID)
	assert.True(t, IsTimeout(err))

	h.Release()

	h2, err := b.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	h2.Release()
}
