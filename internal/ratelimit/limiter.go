package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles APK generation requests per client using a token
// bucket kept in Redis, so the limit holds across restarts.
type Limiter struct {
	client *redis.Client
	burst  int
	refill float64
	ttl    time.Duration
}

// New constructs a limiter allowing burst requests with refillPerSecond
// sustained throughput per client key.
func New(client *redis.Client, burst int, refillPerSecond float64) *Limiter {
	return &Limiter{
		client: client,
		burst:  burst,
		refill: refillPerSecond,
		ttl:    time.Hour,
	}
}

// Allow consumes one token for the client if available.
func (l *Limiter) Allow(ctx context.Context, client string) (bool, error) {
	res, err := tokenScript.Run(ctx, l.client,
		[]string{"apkgen:rl:" + client},
		l.burst, l.refill, time.Now().UnixMilli(), l.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return false, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 1 {
		return false, nil
	}
	granted, _ := arr[0].(int64)
	return granted == 1, nil
}

var tokenScript = redis.NewScript(`
local key = KEYS[1]
local burst = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end

local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed / 1000 * refill)

local granted = 0
if tokens >= 1 then
  granted = 1
  tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_ms', now)
if ttl > 0 then redis.call('PEXPIRE', key, ttl) end
return {granted}
`)
