package ratelimit

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

// Runs only when REDIS_ADDR points at a reachable server.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	rl := NewRedisLimiter(client, "test:"+uuid.NewString()+":", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.ResetAt, 2*time.Second)
}

func TestNewRedisLimiter_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	rl := NewRedisLimiter(client, "", 10, time.Minute)
	assert.Equal(t, "throttle:", rl.keyPrefix)
	assert.NoError(t, rl.Close())
}
