package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/verification"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, policy verification.Policy) (*verification.RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return verification.NewRedisRateLimiter(client, "test", policy), m
}

func TestRedisRateLimiterWindows(t *testing.T) {
	limiter, _ := newRedisLimiter(t, verification.NewPolicy(2, 3))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, limiter.Allow(ctx, testPhone, verification.KindPhone, now))
	require.NoError(t, limiter.Allow(ctx, testPhone, verification.KindPhone, now.Add(time.Second)))

	err := limiter.Allow(ctx, testPhone, verification.KindPhone, now.Add(2*time.Second))
	var rl *errors.RateLimitError
	require.True(t, errors.As(err, &rl))
	require.ErrorIs(t, err, errors.ErrRateLimited)
	require.Equal(t, time.Minute, rl.Window)
	require.Equal(t, 58*time.Second, rl.RetryAfter)

	// Other identifiers have their own windows.
	require.NoError(t, limiter.Allow(ctx, testEmail, verification.KindEmail, now.Add(2*time.Second)))

	require.NoError(t, limiter.Allow(ctx, testPhone, verification.KindPhone, now.Add(61*time.Second)))

	err = limiter.Allow(ctx, testPhone, verification.KindPhone, now.Add(122*time.Second))
	require.True(t, errors.As(err, &rl))
	require.Equal(t, time.Hour, rl.Window)
	require.Equal(t, time.Hour-122*time.Second, rl.RetryAfter)
}

func TestRedisRateLimiterRejectionIsNotRecorded(t *testing.T) {
	limiter, m := newRedisLimiter(t, verification.NewPolicy(1, 10))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, limiter.Allow(ctx, testPhone, verification.KindPhone, now))
	for i := 1; i <= 5; i++ {
		require.Error(t, limiter.Allow(ctx, testPhone, verification.KindPhone, now.Add(time.Duration(i)*time.Second)))
	}

	members, err := m.ZMembers("test:phone:" + testPhone)
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestRedisRateLimiterUnavailable(t *testing.T) {
	limiter, m := newRedisLimiter(t, verification.DefaultPolicy())
	m.Close()

	err := limiter.Allow(context.Background(), testPhone, verification.KindPhone, time.Now())
	require.ErrorIs(t, err, errors.ErrUnavailable)
}

func TestLedgerWithRedisRateLimiter(t *testing.T) {
	limiter, _ := newRedisLimiter(t, verification.NewPolicy(1, 10))
	f := setupTestFixture(t, verification.WithRateLimiter(limiter))

	f.generate(t, testPhone, verification.KindPhone, verification.PurposeLogin)
	_, err := f.ledger.Generate(context.Background(), verification.GenerateRequest{
		Identifier: testPhone, Kind: verification.KindPhone, Purpose: verification.PurposeLogin,
	})
	require.ErrorIs(t, err, errors.ErrRateLimited)
}
