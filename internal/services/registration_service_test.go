package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

func newRegistrationFixture(t *testing.T) (*RegistrationService, *VerificationService, *capturingMailer, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	verification, err := NewVerificationService(db)
	require.NoError(t, err)

	resolver, err := NewDirectoryRoleResolver(db)
	require.NoError(t, err)

	mailer := &capturingMailer{}

	svc, err := NewRegistrationService(db, verification, resolver, mailer, nil)
	require.NoError(t, err)

	return svc, verification, mailer, db
}

func requestAndSubmit(t *testing.T, svc *RegistrationService, db *gorm.DB, email string) {
	t.Helper()

	require.NoError(t, svc.RequestCode(context.Background(), email, RequestMetadata{}))

	var record models.VerificationCode
	require.NoError(t, db.Where("email = ? AND consumed = ?", email, false).Take(&record).Error)
	require.NoError(t, svc.SubmitCode(context.Background(), email, record.Code, RequestMetadata{}))
}

func TestRegistrationHappyPath(t *testing.T) {
	svc, _, mailer, db := newRegistrationFixture(t)

	email := "alice@campus.edu"
	require.NoError(t, svc.RequestCode(context.Background(), email, RequestMetadata{}))
	require.Len(t, mailer.messages, 1)
	require.Equal(t, []string{email}, mailer.messages[0].To)

	var record models.VerificationCode
	require.NoError(t, db.Where("email = ?", email).Take(&record).Error)
	require.Contains(t, mailer.messages[0].Body, record.Code)

	require.NoError(t, svc.SubmitCode(context.Background(), email, record.Code, RequestMetadata{}))

	course := 2
	user, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:      email,
		Username:   "alice",
		Password:   "secret1",
		FirstName:  "Alice",
		LastName:   "Ivanova",
		Faculty:    "Physics",
		StudyGroup: "PH-201",
		Course:     &course,
	}, RequestMetadata{})
	require.NoError(t, err)

	require.True(t, user.IsActive)
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, "Physics", user.Faculty)
	require.NotEmpty(t, user.ID)

	// The proof is claimed by the new account.
	var claimed models.VerificationCode
	require.NoError(t, db.Take(&claimed, "id = ?", record.ID).Error)
	require.NotNil(t, claimed.UserID)
	require.Equal(t, user.ID, *claimed.UserID)
}

func TestRegistrationAssignsProfessorRole(t *testing.T) {
	svc, _, _, db := newRegistrationFixture(t)

	email := "prof@campus.edu"
	require.NoError(t, db.Create(&models.InstitutionalEmail{
		Email:      email,
		Department: "Mathematics",
		IsActive:   true,
	}).Error)

	requestAndSubmit(t, svc, db, email)

	user, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:      email,
		Username:   "prof",
		Password:   "secret1",
		Department: "Mathematics",
		Position:   "Associate Professor",
		Faculty:    "ignored",
	}, RequestMetadata{})
	require.NoError(t, err)

	require.Equal(t, models.RoleProfessor, user.Role)
	require.Equal(t, "Mathematics", user.Department)
	// Student fields do not apply to professors.
	require.Empty(t, user.Faculty)
}

func TestRequestCodeRejectsExistingAccount(t *testing.T) {
	svc, _, mailer, db := newRegistrationFixture(t)

	seedUser(t, db, "taken", models.RoleStudent)

	err := svc.RequestCode(context.Background(), "taken@campus.edu", RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
	require.Empty(t, mailer.messages)
}

func TestRequestCodeDeliveryFailure(t *testing.T) {
	svc, _, mailer, db := newRegistrationFixture(t)
	mailer.err = errSMTPDown

	err := svc.RequestCode(context.Background(), "a@campus.edu", RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrDeliveryFailure)

	// The minted code stays usable for a retry.
	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).
		Where("email = ? AND consumed = ?", "a@campus.edu", false).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCompleteRegistrationRequiresVerifiedEmail(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(t)

	_, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:    "fresh@campus.edu",
		Username: "fresh",
		Password: "secret1",
	}, RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrEmailNotVerified)
}

func TestCompleteRegistrationRejectsWeakPassword(t *testing.T) {
	svc, _, _, db := newRegistrationFixture(t)

	email := "weak@campus.edu"
	requestAndSubmit(t, svc, db, email)

	_, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:    email,
		Username: "weak",
		Password: "12345",
	}, RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrWeakPassword)
}

func TestCompleteRegistrationDuplicateUsername(t *testing.T) {
	svc, _, _, db := newRegistrationFixture(t)

	seedUser(t, db, "bob", models.RoleStudent)

	email := "second@campus.edu"
	requestAndSubmit(t, svc, db, email)

	_, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:    email,
		Username: "bob",
		Password: "secret1",
	}, RequestMetadata{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.True(t, strings.HasPrefix(appErr.Code, "DUPLICATE_"))
}

func TestCompleteRegistrationProofIsSingleUse(t *testing.T) {
	svc, _, _, db := newRegistrationFixture(t)

	email := "once@campus.edu"
	requestAndSubmit(t, svc, db, email)

	_, err := svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:    email,
		Username: "once",
		Password: "secret1",
	}, RequestMetadata{})
	require.NoError(t, err)

	// Deleting the account does not resurrect the spent proof.
	require.NoError(t, db.Where("email = ?", email).Delete(&models.User{}).Error)

	_, err = svc.CompleteRegistration(context.Background(), CompleteRegistrationInput{
		Email:    email,
		Username: "once2",
		Password: "secret1",
	}, RequestMetadata{})
	require.ErrorIs(t, err, apperrors.ErrEmailNotVerified)
}

var errSMTPDown = errSMTP{}

type errSMTP struct{}

func (errSMTP) Error() string { return "smtp connection refused" }
