package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiterBurstThenDeny(t *testing.T) {
	// 1/min refill keeps the bucket from refilling mid-test
	limiter := NewTokenBucketLimiter(1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d within burst should pass", i+1)
	}

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestTokenBucketLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTokenBucketLimiterReset(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "user:u1"))

	allowed, err = limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTokenBucketLimiterRefills(t *testing.T) {
	// 60000/min refills one token per millisecond
	limiter := NewTokenBucketLimiter(60000, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTokenBucketLimiterDefaults(t *testing.T) {
	limiter := NewTokenBucketLimiter(0, 0)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiterNilClientFailsOpen(t *testing.T) {
	limiter := NewDistributedRateLimiter(nil, "catalog", 5, time.Minute, "API")
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	remaining, resetIn, err := limiter.GetRemaining(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
	assert.Greater(t, resetIn, time.Duration(0))

	assert.NoError(t, limiter.Reset(ctx, "ip:10.0.0.1"))
}
