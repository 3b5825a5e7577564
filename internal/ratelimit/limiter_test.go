package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis, *clock.FakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	l, err := NewWithClient(client, config.RateLimitConfig{
		UserRate:        1,
		UserBurst:       3,
		PollerLeaseTTLS: 3,
	}, clk, zap.NewNop())
	require.NoError(t, err)
	return l, mr, clk
}

func TestAllowUserSpendsBurstThenRefills(t *testing.T) {
	l, _, clk := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.AllowUser(ctx, 42), "request %d", i)
	}
	assert.False(t, l.AllowUser(ctx, 42))
	assert.True(t, l.AllowUser(ctx, 7), "buckets are per user")

	clk.Advance(1500 * time.Millisecond)
	assert.True(t, l.AllowUser(ctx, 42))
	assert.False(t, l.AllowUser(ctx, 42))
}

func TestAllowUserFailsOpen(t *testing.T) {
	l, mr, _ := setupLimiter(t)
	mr.Close()

	assert.True(t, l.AllowUser(context.Background(), 42))
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	ctx := context.Background()

	assert.True(t, l.AllowUser(ctx, 1))
	leaseCtx, err := l.AcquirePollerLease(ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx, leaseCtx)
}

func TestTokenBucketRetryAfter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bucket := NewTokenBucket(client)
	now := time.Unix(1_700_000_000, 0)

	res, err := bucket.Allow(context.Background(), "k", 2, 1, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(context.Background(), "k", 2, 1, now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)

	_, err = bucket.Allow(context.Background(), "", 2, 1, now)
	assert.Error(t, err)
}

func TestPollerLeaseIsExclusive(t *testing.T) {
	first, mr, _ := setupLimiter(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	second, err := NewWithClient(client, config.RateLimitConfig{UserRate: 1, UserBurst: 1, PollerLeaseTTLS: 3}, clock.System{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	leaseCtx, err := first.AcquirePollerLease(ctx)
	require.NoError(t, err)
	assert.NoError(t, leaseCtx.Err())
	assert.True(t, mr.Exists(keyPollerLease))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer waitCancel()
	_, err = second.AcquirePollerLease(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancel()
	require.Eventually(t, func() bool { return !mr.Exists(keyPollerLease) }, 2*time.Second, 10*time.Millisecond)
}

func TestPollerLeaseLost(t *testing.T) {
	l, mr, _ := setupLimiter(t)

	leaseCtx, err := l.AcquirePollerLease(context.Background())
	require.NoError(t, err)

	require.NoError(t, mr.Set(keyPollerLease, "someone-else"))

	select {
	case <-leaseCtx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("lease context should end once the lease is taken over")
	}
}

func TestLockerOwnership(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := NewLocker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	refreshed, err := locker.Refresh(ctx, "lock", "not-the-owner", time.Minute)
	require.NoError(t, err)
	assert.False(t, refreshed)

	require.NoError(t, locker.Release(ctx, "lock", "not-the-owner"))
	assert.True(t, mr.Exists("lock"))

	require.NoError(t, locker.Release(ctx, "lock", token))
	assert.False(t, mr.Exists("lock"))
}
