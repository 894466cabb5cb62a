package store

import (
	"context"

	"github.com/SignpostApp/landing/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Get returns the stored timestamps for key, or ErrNotFound.
func (s *Buckets) Get(ctx context.Context, key string) ([]int64, error) {
	bucket, err := gorm.G[models.RateLimitBucket](s.db).Where("bucket_key = ?", key).First(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "get bucket")
	}
	return []int64(bucket.Timestamps), nil
}
