package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enumerates account roles. Student and professor are inferred from the
// institutional email directory at registration time; admin is only ever set
// by operators.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

// User describes a campus account together with its profile. The profile is
// initialised in the same transaction that creates the account, so a user row
// never exists without its profile fields.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Role     Role `gorm:"not null;default:student" json:"role"`
	IsActive bool `gorm:"default:false" json:"is_active"`

	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	MiddleName string     `json:"middle_name"`
	AvatarURL  string     `json:"avatar_url"`
	Bio        string     `gorm:"size:500" json:"bio"`
	BirthDate  *time.Time `json:"birth_date"`

	// Student profile fields.
	Faculty    string `json:"faculty,omitempty"`
	StudyGroup string `json:"study_group,omitempty"`
	Course     *int   `json:"course,omitempty"`

	// Professor profile fields.
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`

	Sessions          []Session          `gorm:"foreignKey:UserID" json:"-"`
	VerificationCodes []VerificationCode `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName returns the display name assembled from profile fields, falling
// back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}
