// Package store is the gorm-backed persistence for waitlist entries and
// rate-limit buckets.
package store

import (
	"context"

	"github.com/SignpostApp/landing/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")

type Waitlist struct {
	db *gorm.DB
}

func NewWaitlist(db *gorm.DB) *Waitlist {
	return &Waitlist{db: db}
}

func (s *Waitlist) FindByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	entry, err := gorm.G[models.WaitlistEntry](s.db).Where("email = ?", email).First(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "find waitlist entry")
	}
	return &entry, nil
}

// Insert adds entry unless its email already exists. The uniqueness check and
// the write are one statement, so concurrent inserts of the same email leave
// exactly one row; the losers get inserted == false.
func (s *Waitlist) Insert(ctx context.Context, entry *models.WaitlistEntry) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, errors.WithMessage(res.Error, "insert waitlist entry")
	}
	return res.RowsAffected > 0, nil
}

// CountJoinedUpTo counts entries whose joined_at is at or before joinedAt.
func (s *Waitlist) CountJoinedUpTo(ctx context.Context, joinedAt int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("joined_at <= ?", joinedAt).
		Count(&n).Error
	if err != nil {
		return 0, errors.WithMessage(err, "count entries up to")
	}
	return n, nil
}

func (s *Waitlist) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&n).Error
	if err != nil {
		return 0, errors.WithMessage(err, "count entries")
	}
	return n, nil
}
