package rediskv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"petpal/internal/ports/ratelimit"

	"github.com/redis/go-redis/v9"
)

// El estado del bucket vive en un hash; el script lo repone por intervalos
// enteros, consume un token y renueva el EXPIRE en una sola operación.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type BucketConfig struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

type Limiter struct {
	c   *Client
	cfg BucketConfig
	now func() time.Time
}

func (c *Client) Limiter(cfg BucketConfig) *Limiter {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if cfg.TTL < time.Second {
		cfg.TTL = 5 * cfg.RefillInterval
	}
	return &Limiter{c: c, cfg: cfg, now: time.Now}
}

func (l *Limiter) Take(ctx context.Context, key string) (ratelimit.Decision, error) {
	vals, err := bucketScript.Run(ctx, l.c.rdb, []string{l.c.prefix + ":" + key},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Result()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rediskv: rate limit %s: %w", key, err)
	}
	return parseDecision(vals, l.cfg.Capacity)
}

// parseDecision interpreta {allowed, remaining, retry_after_ms}.
func parseDecision(vals any, capacity int) (ratelimit.Decision, error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("rediskv: unexpected script result %#v", vals)
	}
	return ratelimit.Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      capacity,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
