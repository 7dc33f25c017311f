package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/pkg/crypto"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/metrics"
)

const (
	defaultCodeDigits = 6
	defaultCodeExpiry = 15 * time.Minute
	defaultMaxChecks  = 3
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationExpiry overrides the code lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationMaxChecks overrides how many checks a code survives.
func WithVerificationMaxChecks(n int) VerificationOption {
	return func(s *VerificationService) {
		if n > 0 {
			s.maxChecks = n
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService manages the one-time numeric codes used to prove
// ownership of an email address during registration. An email has at most one
// unconsumed code at a time; issuing a new code retires the previous one.
type VerificationService struct {
	db        *gorm.DB
	digits    int
	expiry    time.Duration
	maxChecks int
	now       func() time.Time
}

// NewVerificationService constructs a verification service with the provided dependencies.
func NewVerificationService(db *gorm.DB, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:        db,
		digits:    defaultCodeDigits,
		expiry:    defaultCodeExpiry,
		maxChecks: defaultMaxChecks,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue mints a fresh code for the email, retiring any unconsumed predecessor
// so that exactly one code can ever be checked against.
func (s *VerificationService) Issue(ctx context.Context, email string) (*models.VerificationCode, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if email == "" {
		return nil, errors.New("verification service: email is required")
	}

	code, err := crypto.GenerateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("verification service: generate code: %w", err)
	}

	now := s.now()
	record := models.VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND consumed = ?", email, false).
			Delete(&models.VerificationCode{}).Error; err != nil {
			return fmt.Errorf("retire previous codes: %w", err)
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("verification service: issue code: %w", err)
	}

	metrics.VerificationCodesIssued.Inc()

	return &record, nil
}

// LatestUnconsumed returns the live code for the email, if any.
func (s *VerificationService) LatestUnconsumed(ctx context.Context, email string) (*models.VerificationCode, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	var record models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND consumed = ?", email, false).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification service: find code: %w", err)
	}
	return &record, nil
}

// Attempt checks the submitted digits against the live code for the email.
// Every call spends one attempt before the code is inspected, so expired and
// mismatched submissions still count toward the limit. A successful match
// consumes the code and records the email as verified.
func (s *VerificationService) Attempt(ctx context.Context, email, submitted string) (*models.VerificationCode, error) {
	ctx = ensureContext(ctx)

	record, err := s.LatestUnconsumed(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrCodeNotFound) {
			metrics.VerificationAttempts.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	record.Attempts++
	if err := s.db.WithContext(ctx).
		Model(record).
		Update("attempts", record.Attempts).Error; err != nil {
		return nil, fmt.Errorf("verification service: record attempt: %w", err)
	}

	if record.Attempts > s.maxChecks {
		metrics.VerificationAttempts.WithLabelValues("exhausted").Inc()
		return nil, apperrors.ErrAttemptsExceeded
	}

	now := s.now()
	if !now.Before(record.ExpiresAt) {
		metrics.VerificationAttempts.WithLabelValues("expired").Inc()
		return nil, apperrors.ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(submitted)) != 1 {
		// The final allowed check exhausts the code outright.
		if s.AttemptsLeft(record) == 0 {
			metrics.VerificationAttempts.WithLabelValues("exhausted").Inc()
			return nil, apperrors.ErrAttemptsExceeded
		}
		metrics.VerificationAttempts.WithLabelValues("mismatch").Inc()
		return nil, apperrors.ErrCodeMismatch.WithDetails(map[string]any{
			"attempts_left": s.AttemptsLeft(record),
		})
	}

	if err := s.db.WithContext(ctx).
		Model(record).
		Updates(map[string]any{"consumed": true, "verified": true}).Error; err != nil {
		return nil, fmt.Errorf("verification service: consume code: %w", err)
	}

	record.Consumed = true
	record.Verified = true

	metrics.VerificationAttempts.WithLabelValues("success").Inc()

	return record, nil
}

// AttemptsLeft reports how many checks the code has remaining, never below zero.
func (s *VerificationService) AttemptsLeft(record *models.VerificationCode) int {
	if record == nil {
		return 0
	}
	left := s.maxChecks - record.Attempts
	if left < 0 {
		return 0
	}
	return left
}

// VerifiedProof returns the consumed, verified code for an email that has not
// yet been attached to an account. Registration completion requires one.
func (s *VerificationService) VerifiedProof(ctx context.Context, email string) (*models.VerificationCode, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	var record models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND consumed = ? AND verified = ? AND user_id IS NULL", email, true, true).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrEmailNotVerified
	}
	if err != nil {
		return nil, fmt.Errorf("verification service: find proof: %w", err)
	}
	return &record, nil
}

// CleanupExpired removes codes that can never be redeemed: unconsumed codes
// past their expiry and consumed codes older than the retention window.
func (s *VerificationService) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	result := s.db.WithContext(ctx).
		Where("(consumed = ? AND expires_at < ?) OR (consumed = ? AND user_id IS NULL AND created_at < ?)",
			false, now, true, now.Add(-retention)).
		Delete(&models.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("verification service: cleanup codes: %w", result.Error)
	}

	return result.RowsAffected, nil
}
