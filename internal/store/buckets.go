package store

import (
	"context"
	"time"

	"github.com/SignpostApp/landing/internal/models"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Buckets struct {
	db *gorm.DB
}

func NewBuckets(db *gorm.DB) *Buckets {
	return &Buckets{db: db}
}

// Update loads the timestamps stored under key, passes them to mutate and
// writes the result back, all inside one transaction holding the row lock.
// The row is created on first use.
func (s *Buckets) Update(ctx context.Context, key string, now time.Time, mutate func(timestamps []int64) []int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.RateLimitBucket{
			BucketKey:  key,
			Timestamps: datatypes.JSONSlice[int64]{},
			UpdatedAt:  now.UnixMilli(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bucket_key"}},
			DoNothing: true,
		}).Create(&seed).Error
		if err != nil {
			return errors.WithMessage(err, "seed bucket")
		}

		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var bucket models.RateLimitBucket
		if err := query.Where("bucket_key = ?", key).First(&bucket).Error; err != nil {
			return errors.WithMessage(err, "lock bucket")
		}

		next := mutate([]int64(bucket.Timestamps))
		if next == nil {
			next = []int64{}
		}

		err = tx.Model(&models.RateLimitBucket{}).
			Where("id = ?", bucket.ID).
			Updates(map[string]any{
				"timestamps": datatypes.JSONSlice[int64](next),
				"updated_at": now.UnixMilli(),
			}).Error
		if err != nil {
			return errors.WithMessage(err, "write bucket")
		}
		return nil
	})
	if err != nil {
		return errors.WithMessagef(err, "update bucket %s", key)
	}
	return nil
}
