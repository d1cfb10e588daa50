/**
 * @description
 * Fixed-window request limiter backed by Redis, shared by every API replica.
 */
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys when no prefix is configured.
const DefaultPrefix = "treasury:rate_limit"

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter counts requests per (scope, subject) in a fixed window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter creates a limiter. A nil client disables limiting.
func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = DefaultPrefix
	}
	trimmed = strings.TrimSuffix(trimmed, ":")

	return &RedisLimiter{client: client, prefix: trimmed}
}

// Key returns the Redis key used for a scope and subject.
func (r *RedisLimiter) Key(scope, subject string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
}

// Consume counts one request and returns the count in the current window and
// the seconds until the window resets.
func (r *RedisLimiter) Consume(
	ctx context.Context,
	scope string,
	subject string,
	limit int,
	window time.Duration,
) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, r.client, []string{r.Key(scope, subject)}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}
	return parseWindowResult(raw, windowMs)
}

func parseWindowResult(raw interface{}, windowMs int64) (int, int, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}

	current, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(current), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(current), retryAfter, nil
}
