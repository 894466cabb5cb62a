package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted set to the window, counts what is left
// and adds the attempt only when under the limit. Redis runs it atomically.
//
// KEYS[1] bucket key; ARGV: now ms, window ms, limit, member.
// Returns {allowed, count, oldest ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local score = now
	if oldest[2] then
		score = tonumber(oldest[2])
	end
	return {0, count, score}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, now}
`)

type RedisBackend struct {
	rdb    redis.Scripter
	prefix string
}

type RedisOption func(*RedisBackend)

func WithRedisPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) { b.prefix = strings.Trim(prefix, ":") }
}

func NewRedisBackend(rdb redis.Scripter, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		rdb:    rdb,
		prefix: "waitlist:ratelimit",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) CheckAndRecord(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, b.rdb,
		[]string{b.prefix + ":" + key},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Decision{}, errors.WithMessagef(err, "redis sliding window %s", key)
	}
	if len(res) != 3 {
		return Decision{}, errors.Errorf("redis sliding window %s: unexpected reply %v", key, res)
	}

	d := Decision{Allowed: res[0] == 1, Count: int(res[1]), Limit: limit}
	if !d.Allowed {
		retry := time.Duration(res[2]+window.Milliseconds()-nowMs) * time.Millisecond
		if retry > 0 {
			d.RetryAfter = retry
		}
	}
	return d, nil
}
