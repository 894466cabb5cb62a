package models

// WaitlistEntry is one accepted signup. Rows are written once and never
// updated.
type WaitlistEntry struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Email    string `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Domain   string `gorm:"size:253;not null;index" json:"domain"`
	Source   string `gorm:"size:64" json:"source,omitempty"`
	JoinedAt int64  `gorm:"not null;index" json:"joined_at"` // epoch ms, server clock
}
