package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Returns {0, 0} when the request was recorded, or {window index + 1, retry ms}
// for the first window that is already full.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local member = ARGV[2]
local longest_ms = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now_ms - longest_ms)

local windows = (#ARGV - 3) / 2
for i = 0, windows - 1 do
  local span_ms = tonumber(ARGV[4 + i * 2])
  local limit = tonumber(ARGV[5 + i * 2])
  local floor = "(" .. tostring(now_ms - span_ms)
  local count = redis.call("ZCOUNT", key, floor, "+inf")
  if count >= limit then
    local retry_ms = span_ms
    local oldest = redis.call("ZRANGEBYSCORE", key, floor, "+inf", "WITHSCORES", "LIMIT", 0, 1)
    if oldest and oldest[2] then
      retry_ms = (tonumber(oldest[2]) + span_ms) - now_ms
      if retry_ms < 1 then
        retry_ms = 1
      end
    end
    return {i + 1, retry_ms}
  end
end

redis.call("ZADD", key, now_ms, member)
redis.call("PEXPIRE", key, longest_ms)
return {0, 0}
`)

// RedisRateLimiter keeps a sorted set of request timestamps per identifier.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
	policy Policy
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(client redis.UniversalClient, prefix string, policy Policy) *RedisRateLimiter {
	if prefix == "" {
		prefix = "otp:rl"
	}
	return &RedisRateLimiter{client: client, prefix: prefix, policy: policy}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, identifier string, kind Kind, now time.Time) error {
	args := []any{now.UnixMilli(), uuid.NewString(), l.policy.Longest().Milliseconds()}
	for _, w := range l.policy {
		args = append(args, w.Span.Milliseconds(), w.Limit)
	}

	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.key(identifier, kind)}, args...).Result()
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, fmt.Errorf("unexpected limiter reply %T", res))
	}
	window, err := parseRedisInt64(values[0])
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	if window == 0 {
		return nil
	}
	retryMS, err := parseRedisInt64(values[1])
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, err)
	}
	if window < 1 || int(window) > len(l.policy) {
		return errors.Wrap(errors.ErrUnavailable, unavailableMessage, fmt.Errorf("limiter window %d out of range", window))
	}
	return &errors.RateLimitError{
		Window:     l.policy[window-1].Span,
		RetryAfter: time.Duration(retryMS) * time.Millisecond,
	}
}

func (l *RedisRateLimiter) key(identifier string, kind Kind) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, kind, identifier)
}

func parseRedisInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis integer %T", v)
	}
}
