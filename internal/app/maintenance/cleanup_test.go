package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/campuslink/campuslink-server/internal/auth"
	testutil "github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c fixedClock) Now() time.Time { return c.current }

func seedCleanupUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Username:  "cleanup-user",
		Email:     "cleanup-user@campus.edu",
		Password:  "hashed",
		FirstName: "Clean",
		LastName:  "Up",
		Role:      models.RoleStudent,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	clock := fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "cleanup-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		RefreshLength:   16,
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	verificationSvc, err := services.NewVerificationService(db, services.WithVerificationClock(clock.Now))
	require.NoError(t, err)

	user := seedCleanupUser(t, db)

	_, session, err := sessionSvc.Issue(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", session.ID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)

	// Unconsumed code past expiry and a claimed proof older than retention.
	require.NoError(t, db.Create(&models.VerificationCode{
		Email:     "stale@campus.edu",
		Code:      "123456",
		ExpiresAt: clock.Now().Add(-time.Hour),
	}).Error)
	fresh := &models.VerificationCode{
		Email:     "fresh@campus.edu",
		Code:      "654321",
		ExpiresAt: clock.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(fresh).Error)

	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Email:  "cleanup-user@campus.edu",
		Action: "test.action",
		Result: "success",
	}))
	var auditLog models.AuditLog
	require.NoError(t, db.First(&auditLog).Error)
	require.NoError(t, db.Model(&auditLog).Update("created_at", time.Now().AddDate(0, 0, -10)).Error)

	cleaner := NewCleaner(sessionSvc, verificationSvc, auditSvc,
		WithAuditRetentionDays(7),
		WithCodeRetention(time.Hour),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	var codes []models.VerificationCode
	require.NoError(t, db.Find(&codes).Error)
	require.Len(t, codes, 1)
	require.Equal(t, fresh.ID, codes[0].ID)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Zero(t, auditCount)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	verificationSvc, err := services.NewVerificationService(db)
	require.NoError(t, err)

	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	cleaner := NewCleaner(nil, verificationSvc, auditSvc, WithCron(scheduler))

	require.NoError(t, cleaner.Start())
	require.Len(t, scheduler.Entries(), 2)

	<-cleaner.Stop().Done()
}

func TestCleanerDisabledWithoutDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
