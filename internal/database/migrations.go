package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/pkg/crypto"
	"github.com/campuslink/campuslink-server/pkg/logger"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.InstitutionalEmail{},
		&models.VerificationCode{},
		&models.Session{},
		&models.AuditLog{},
		&models.CacheEntry{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Building{},
		&models.Room{},
		&models.RoomReview{},
		&models.Event{},
		&models.EventParticipant{},
		&models.EventReview{},
	)
}

// SeedData ensures the instance has an administrator account. Registration
// only ever assigns the student and professor roles, so the first admin must
// exist before anyone can manage the institutional email directory.
func SeedData(db *gorm.DB) error {
	var admins int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", "admin").Take(&existing).Error
	if err == nil {
		logger.WithModule("database").Warn("username admin is taken by a non-admin account; skipping admin seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find admin user: %w", err)
	}

	password, err := crypto.GenerateToken(12)
	if err != nil {
		return fmt.Errorf("generate admin password: %w", err)
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@campus.local",
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	// Printed once on first boot; operators should rotate it right away.
	logger.WithModule("database").Warn("seeded default admin account",
		zap.String("username", admin.Username),
		zap.String("password", password),
	)
	return nil
}
