package ratelimit

import (
	"context"
	"time"
)

type BucketStore interface {
	Update(ctx context.Context, key string, now time.Time, mutate func(timestamps []int64) []int64) error
}

// SQLBackend keeps one bucket row per key and applies Slide inside the
// store's row-locking transaction.
type SQLBackend struct {
	buckets BucketStore
}

func NewSQLBackend(buckets BucketStore) *SQLBackend {
	return &SQLBackend{buckets: buckets}
}

func (b *SQLBackend) CheckAndRecord(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	var decision Decision
	err := b.buckets.Update(ctx, key, now, func(timestamps []int64) []int64 {
		var kept []int64
		kept, decision = Slide(timestamps, limit, window, now)
		return kept
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}
