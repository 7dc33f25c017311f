package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

func newVerificationFixture(t *testing.T, clock func() time.Time) (*VerificationService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewVerificationService(db, WithVerificationClock(clock))
	require.NoError(t, err)
	return svc, db
}

func TestIssueGeneratesSixDigitCode(t *testing.T) {
	svc, _ := newVerificationFixture(t, time.Now)

	record, err := svc.Issue(context.Background(), "Student@Campus.EDU")
	require.NoError(t, err)
	require.Equal(t, "student@campus.edu", record.Email)
	require.Len(t, record.Code, 6)
	for _, ch := range record.Code {
		require.True(t, ch >= '0' && ch <= '9')
	}
	require.False(t, record.Consumed)
	require.Zero(t, record.Attempts)
}

func TestIssueRetiresPreviousCode(t *testing.T) {
	svc, db := newVerificationFixture(t, time.Now)

	first, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).
		Where("email = ? AND consumed = ?", "a@campus.edu", false).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAttemptConsumesOnMatch(t *testing.T) {
	svc, db := newVerificationFixture(t, time.Now)

	record, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)

	verified, err := svc.Attempt(context.Background(), "a@campus.edu", record.Code)
	require.NoError(t, err)
	require.True(t, verified.Consumed)
	require.True(t, verified.Verified)
	require.Equal(t, 1, verified.Attempts)

	var stored models.VerificationCode
	require.NoError(t, db.Take(&stored, "id = ?", record.ID).Error)
	require.True(t, stored.Consumed)
	require.True(t, stored.Verified)
}

func TestAttemptMismatchReportsAttemptsLeft(t *testing.T) {
	svc, _ := newVerificationFixture(t, time.Now)

	record, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)

	wrong := "000000"
	if record.Code == wrong {
		wrong = "111111"
	}

	_, err = svc.Attempt(context.Background(), "a@campus.edu", wrong)
	require.ErrorIs(t, err, apperrors.ErrCodeMismatch)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 2, appErr.Details["attempts_left"])
}

func TestAttemptExhaustsAfterLimit(t *testing.T) {
	svc, _ := newVerificationFixture(t, time.Now)

	record, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)

	wrong := "000000"
	if record.Code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 2; i++ {
		_, err = svc.Attempt(context.Background(), "a@campus.edu", wrong)
		require.ErrorIs(t, err, apperrors.ErrCodeMismatch)
	}

	// The final allowed check reports exhaustion, not another mismatch.
	_, err = svc.Attempt(context.Background(), "a@campus.edu", wrong)
	require.ErrorIs(t, err, apperrors.ErrAttemptsExceeded)

	// The correct code no longer redeems once the attempt budget is spent.
	_, err = svc.Attempt(context.Background(), "a@campus.edu", record.Code)
	require.ErrorIs(t, err, apperrors.ErrAttemptsExceeded)
}

func TestAttemptExpiredCode(t *testing.T) {
	current := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newVerificationFixture(t, func() time.Time { return current })

	record, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)

	_, err = svc.Attempt(context.Background(), "a@campus.edu", record.Code)
	require.ErrorIs(t, err, apperrors.ErrCodeExpired)
}

func TestAttemptWithoutCode(t *testing.T) {
	svc, _ := newVerificationFixture(t, time.Now)

	_, err := svc.Attempt(context.Background(), "nobody@campus.edu", "123456")
	require.ErrorIs(t, err, apperrors.ErrCodeNotFound)
}

func TestVerifiedProofRequiresConsumption(t *testing.T) {
	svc, _ := newVerificationFixture(t, time.Now)

	_, err := svc.VerifiedProof(context.Background(), "a@campus.edu")
	require.ErrorIs(t, err, apperrors.ErrEmailNotVerified)

	record, err := svc.Issue(context.Background(), "a@campus.edu")
	require.NoError(t, err)

	_, err = svc.VerifiedProof(context.Background(), "a@campus.edu")
	require.ErrorIs(t, err, apperrors.ErrEmailNotVerified)

	_, err = svc.Attempt(context.Background(), "a@campus.edu", record.Code)
	require.NoError(t, err)

	proof, err := svc.VerifiedProof(context.Background(), "a@campus.edu")
	require.NoError(t, err)
	require.Equal(t, record.ID, proof.ID)
}

func TestCleanupExpiredCodes(t *testing.T) {
	current := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, db := newVerificationFixture(t, func() time.Time { return current })

	_, err := svc.Issue(context.Background(), "stale@campus.edu")
	require.NoError(t, err)

	current = current.Add(time.Hour)

	removed, err := svc.CleanupExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.Zero(t, count)
}
