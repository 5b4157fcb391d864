// Package ratelimit implements a Redis token bucket shared by every server
// instance.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeToken refills the bucket for the milliseconds elapsed since it was last
// touched, then spends one token if a whole one is available. The bucket
// hash keeps "level" and "at" (ms) and expires once it would be full again.
//
//	KEYS[1]  bucket key
//	ARGV[1]  tokens per second
//	ARGV[2]  capacity
//	ARGV[3]  clock, unix ms
//
// Returns 1 when the request is admitted and 0 otherwise.
var takeToken = redis.NewScript(`
local perSecond = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local clock = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'level', 'at')
local level = capacity
local at = clock
if state[1] and state[2] then
	level = tonumber(state[1])
	at = tonumber(state[2])
end

local elapsed = clock - at
if elapsed > 0 then
	level = math.min(capacity, level + elapsed * perSecond / 1000)
end

local admitted = 0
if level >= 1 then
	level = level - 1
	admitted = 1
end

redis.call('HSET', KEYS[1], 'level', level, 'at', math.max(clock, at))
redis.call('PEXPIRE', KEYS[1], math.ceil((capacity - level) * 1000 / perSecond) + 1000)

return admitted
`)

// Limiter admits at most Rate requests per second per key, with bursts up to Burst.
type Limiter struct {
	rdb   redis.UniversalClient
	Rate  int
	Burst int
	now   func() time.Time
}

func New(rdb redis.UniversalClient, rate, burst int) *Limiter {
	return &Limiter{
		rdb:   rdb,
		Rate:  rate,
		Burst: burst,
		now:   time.Now,
	}
}

// Allow spends one token from the bucket of key and reports whether the
// request may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	admitted, err := takeToken.Run(ctx, l.rdb,
		[]string{"ratelimit:" + key},
		l.Rate,
		l.Burst,
		l.now().UnixMilli(),
	).Int64()
	if err != nil {
		return false, err
	}

	return admitted == 1, nil
}
