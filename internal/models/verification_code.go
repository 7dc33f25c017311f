package models

import "time"

// VerificationCode stores a one-time numeric code issued during registration.
// UserID is nil while the code belongs to an email that has no account yet;
// it is backfilled when registration completes. At most one unconsumed code
// exists per email: issuing a new one deletes its unconsumed predecessors.
type VerificationCode struct {
	BaseModel

	UserID *string `gorm:"type:uuid;index" json:"user_id"`
	User   *User   `gorm:"foreignKey:UserID" json:"-"`

	Email     string    `gorm:"index;not null" json:"email"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`

	Consumed bool `gorm:"default:false" json:"consumed"`
	Verified bool `gorm:"default:false" json:"verified"`
	Attempts int  `gorm:"default:0" json:"attempts"`
}
