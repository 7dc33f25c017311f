package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/pkg/crypto"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

func newUserFixture(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)
	return svc, db
}

func seedCredentialedUser(t *testing.T, db *gorm.DB, username, password string, active bool) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@campus.edu",
		Password: hashed,
		Role:     models.RoleStudent,
		IsActive: active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestAuthenticateByUsernameAndEmail(t *testing.T) {
	svc, db := newUserFixture(t)
	seedCredentialedUser(t, db, "carol", "secret1", true)

	user, err := svc.Authenticate(context.Background(), "carol", "secret1", RequestMetadata{IPAddress: "10.0.0.9"})
	require.NoError(t, err)
	require.Equal(t, "carol", user.Username)
	require.NotNil(t, user.LastLoginAt)

	user, err = svc.Authenticate(context.Background(), "Carol@Campus.EDU", "secret1", RequestMetadata{})
	require.NoError(t, err)
	require.Equal(t, "carol", user.Username)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, db := newUserFixture(t)
	seedCredentialedUser(t, db, "carol", "secret1", true)

	_, err := svc.Authenticate(context.Background(), "carol", "wrong", RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "secret1", RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveAccount(t *testing.T) {
	svc, db := newUserFixture(t)
	seedCredentialedUser(t, db, "dormant", "secret1", false)

	_, err := svc.Authenticate(context.Background(), "dormant", "secret1", RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrAccountInactive)
}

func TestUpdateProfileRespectsRole(t *testing.T) {
	svc, db := newUserFixture(t)
	student := seedUser(t, db, "student1", models.RoleStudent)
	professor := seedUser(t, db, "prof1", models.RoleProfessor)

	faculty := "Physics"
	department := "Mathematics"
	bio := "hello"

	updated, err := svc.UpdateProfile(context.Background(), student.ID, UpdateProfileInput{
		Bio:        &bio,
		Faculty:    &faculty,
		Department: &department,
	})
	require.NoError(t, err)
	require.Equal(t, "Physics", updated.Faculty)
	require.Equal(t, "hello", updated.Bio)
	// Professor fields never apply to students.
	require.Empty(t, updated.Department)

	updated, err = svc.UpdateProfile(context.Background(), professor.ID, UpdateProfileInput{
		Faculty:    &faculty,
		Department: &department,
	})
	require.NoError(t, err)
	require.Equal(t, "Mathematics", updated.Department)
	require.Empty(t, updated.Faculty)
}

func TestChangePassword(t *testing.T) {
	svc, db := newUserFixture(t)
	user := seedCredentialedUser(t, db, "carol", "secret1", true)

	require.ErrorIs(t,
		svc.ChangePassword(context.Background(), user.ID, "secret1", "short"),
		apperrors.ErrWeakPassword)

	require.ErrorIs(t,
		svc.ChangePassword(context.Background(), user.ID, "wrong", "newsecret"),
		apperrors.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "secret1", "newsecret"))

	_, err := svc.Authenticate(context.Background(), "carol", "newsecret", RequestMetadata{})
	require.NoError(t, err)
}

func TestListUsersFilters(t *testing.T) {
	svc, db := newUserFixture(t)

	student := seedUser(t, db, "anna", models.RoleStudent)
	require.NoError(t, db.Model(student).Update("faculty", "Physics").Error)
	seedUser(t, db, "boris", models.RoleProfessor)
	inactive := seedUser(t, db, "ghost", models.RoleStudent)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	users, total, err := svc.List(context.Background(), ListUsersOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, users, 2)

	users, total, err = svc.List(context.Background(), ListUsersOptions{
		Filters: UserFilters{Role: models.RoleProfessor},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "boris", users[0].Username)

	users, total, err = svc.List(context.Background(), ListUsersOptions{
		Filters: UserFilters{Faculty: "Physics"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "anna", users[0].Username)
}

func TestSetActive(t *testing.T) {
	svc, db := newUserFixture(t)
	user := seedUser(t, db, "anna", models.RoleStudent)

	require.NoError(t, svc.SetActive(context.Background(), user.ID, false))

	var stored models.User
	require.NoError(t, db.Take(&stored, "id = ?", user.ID).Error)
	require.False(t, stored.IsActive)

	require.ErrorIs(t, svc.SetActive(context.Background(), "missing", true), apperrors.ErrNotFound)
}

func TestGetByUsernameHidesInactive(t *testing.T) {
	svc, db := newUserFixture(t)
	user := seedUser(t, db, "anna", models.RoleStudent)

	found, err := svc.GetByUsername(context.Background(), "anna")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	_, err = svc.GetByUsername(context.Background(), "anna")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
