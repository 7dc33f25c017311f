package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
)

// RoleResolver decides which role a new account receives based on its email
// address. Resolution happens once, at registration time; later changes to
// the directory never touch existing accounts.
type RoleResolver interface {
	Resolve(ctx context.Context, email string) (models.Role, error)
}

// NewDirectoryRoleResolver builds a resolver backed by the institutional
// email directory. Addresses with an active directory entry become
// professors; everyone else registers as a student.
func NewDirectoryRoleResolver(db *gorm.DB) (RoleResolver, error) {
	if db == nil {
		return nil, errors.New("role resolver: db is required")
	}
	return &directoryRoleResolver{db: db}, nil
}

type directoryRoleResolver struct {
	db *gorm.DB
}

func (r *directoryRoleResolver) Resolve(ctx context.Context, email string) (models.Role, error) {
	ctx = ensureContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" {
		return models.RoleStudent, errors.New("role resolver: email is required")
	}

	// Directory rows are stored lowercase, but rows inserted out-of-band may
	// not be; compare case-insensitively on both sides.
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InstitutionalEmail{}).
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(email), true).
		Count(&count).Error
	if err != nil {
		return models.RoleStudent, fmt.Errorf("role resolver: lookup email: %w", err)
	}

	if count > 0 {
		return models.RoleProfessor, nil
	}
	return models.RoleStudent, nil
}

// StaticRoleResolver always answers with a fixed role. Useful in tests and
// for deployments that do not maintain a directory.
type StaticRoleResolver struct {
	Role models.Role
}

func (r StaticRoleResolver) Resolve(ctx context.Context, email string) (models.Role, error) {
	if r.Role == "" {
		return models.RoleStudent, nil
	}
	return r.Role, nil
}
