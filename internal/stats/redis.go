package stats

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis keeps the cumulative counters in one hash shared by every instance.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

func NewRedis(rdb redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "waitlist:stats",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Record(ctx context.Context, ev Event) error {
	if err := r.rdb.HIncrBy(ctx, r.totalKey(), field(ev), 1).Err(); err != nil {
		return errors.WithMessage(err, "redis record")
	}
	return nil
}

func (r *Redis) Totals(ctx context.Context) (map[string]int64, error) {
	raw, err := r.rdb.HGetAll(ctx, r.totalKey()).Result()
	if err != nil {
		return nil, errors.WithMessage(err, "redis hgetall")
	}

	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.WithMessagef(err, "parse counter %s", k)
		}
		out[k] = n
	}
	return out, nil
}

func (r *Redis) totalKey() string {
	return r.prefix + ":total"
}
