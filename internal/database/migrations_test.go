package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
)

func openSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestSeedDataCreatesAdmin(t *testing.T) {
	db := openSeedTestDB(t)

	require.NoError(t, SeedData(db))

	var admin models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Take(&admin).Error)
	require.Equal(t, "admin", admin.Username)
	require.True(t, admin.IsActive)
	require.NotEmpty(t, admin.Password)

	// A second run leaves the existing admin alone.
	require.NoError(t, SeedData(db))
	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	require.EqualValues(t, 1, admins)
}

func TestSeedDataSkipsWhenUsernameTaken(t *testing.T) {
	db := openSeedTestDB(t)

	squatter := &models.User{
		Username: "admin",
		Email:    "squatter@campus.edu",
		Password: "hashed",
		Role:     models.RoleStudent,
		IsActive: true,
	}
	require.NoError(t, db.Create(squatter).Error)

	require.NoError(t, SeedData(db))

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	require.Zero(t, admins)
}
