package models

import "gorm.io/datatypes"

// RateLimitBucket holds the recent attempt timestamps for one limiter key
// ("global" or "domain:<domain>").
type RateLimitBucket struct {
	ID         uint                       `gorm:"primaryKey" json:"-"`
	BucketKey  string                     `gorm:"size:300;not null;uniqueIndex" json:"key"`
	Timestamps datatypes.JSONSlice[int64] `gorm:"not null" json:"timestamps"`
	UpdatedAt  int64                      `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}
