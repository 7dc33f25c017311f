package models

import (
	"strings"

	"gorm.io/gorm"
)

// InstitutionalEmail is an allow-list entry for faculty addresses. Accounts
// registered with a listed, active address are assigned the professor role.
// The list is maintained out-of-band; this service only reads it.
type InstitutionalEmail struct {
	BaseModel

	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
}

// BeforeSave stores addresses lowercase so directory lookups never depend on
// how the row was typed in.
func (e *InstitutionalEmail) BeforeSave(*gorm.DB) error {
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	return nil
}
