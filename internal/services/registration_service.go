package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/pkg/crypto"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/mail"
	"github.com/campuslink/campuslink-server/pkg/metrics"
)

const minPasswordLength = 6

// RequestMetadata carries client context for audit trails.
type RequestMetadata struct {
	IPAddress string
	UserAgent string
}

// CompleteRegistrationInput collects everything needed to finish signing up
// once the email has been verified.
type CompleteRegistrationInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string

	MiddleName string
	BirthDate  *time.Time

	Faculty    string
	StudyGroup string
	Course     *int

	Department string
	Position   string
}

// RegistrationOption customises the RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithRegistrationClock injects a custom time source.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// RegistrationService drives the three-step signup flow: request a code,
// submit the code, then complete the profile. Accounts only come into
// existence at the final step, already active.
type RegistrationService struct {
	db           *gorm.DB
	verification *VerificationService
	resolver     RoleResolver
	mailer       mail.Mailer
	auditService *AuditService
	now          func() time.Time
}

// NewRegistrationService constructs a RegistrationService with the provided collaborators.
func NewRegistrationService(
	db *gorm.DB,
	verification *VerificationService,
	resolver RoleResolver,
	mailer mail.Mailer,
	auditService *AuditService,
	opts ...RegistrationOption,
) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	if verification == nil {
		return nil, errors.New("registration service: verification service is required")
	}
	if resolver == nil {
		return nil, errors.New("registration service: role resolver is required")
	}

	service := &RegistrationService{
		db:           db,
		verification: verification,
		resolver:     resolver,
		mailer:       mailer,
		auditService: auditService,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestCode issues a verification code for the email and delivers it.
// Emails already attached to an account are rejected before any code is
// minted.
func (s *RegistrationService) RequestCode(ctx context.Context, email string, meta RequestMetadata) error {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if email == "" {
		return apperrors.NewBadRequest("email is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return fmt.Errorf("registration service: check email: %w", err)
	}
	if count > 0 {
		recordAudit(s.auditService, ctx, AuditEntry{
			Email:     email,
			Action:    "registration.code_requested",
			Result:    "duplicate_email",
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return apperrors.ErrDuplicateEmail
	}

	record, err := s.verification.Issue(ctx, email)
	if err != nil {
		return err
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{email},
			Subject: "Your CampusLink verification code",
			Body:    s.codeEmailBody(record),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			recordAudit(s.auditService, ctx, AuditEntry{
				Email:     email,
				Action:    "registration.code_requested",
				Result:    "delivery_failure",
				IPAddress: meta.IPAddress,
				UserAgent: meta.UserAgent,
			})
			return apperrors.ErrDeliveryFailure.WithInternal(mailErr)
		}
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Email:     email,
		Action:    "registration.code_requested",
		Result:    "success",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return nil
}

// SubmitCode checks the emailed digits. On success the email is marked
// verified and the caller may proceed to CompleteRegistration.
func (s *RegistrationService) SubmitCode(ctx context.Context, email, code string, meta RequestMetadata) error {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperrors.NewBadRequest("email and code are required")
	}

	_, err := s.verification.Attempt(ctx, email, code)

	result := "success"
	if err != nil {
		result = apperrors.FromError(err).Code
	}
	recordAudit(s.auditService, ctx, AuditEntry{
		Email:     email,
		Action:    "registration.code_submitted",
		Result:    strings.ToLower(result),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return err
}

// CompleteRegistration creates the account and its profile in one
// transaction. It requires a verified, unclaimed proof for the email; the
// role is resolved from the institutional directory at this moment and never
// revisited.
func (s *RegistrationService) CompleteRegistration(ctx context.Context, input CompleteRegistrationInput, meta RequestMetadata) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.ErrWeakPassword
	}

	proof, err := s.verification.VerifiedProof(ctx, email)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("registration service: check email: %w", err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	role, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("registration service: resolve role: %w", err)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("registration service: hash password: %w", err)
	}

	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   hashed,
		Role:       role,
		IsActive:   true,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		MiddleName: strings.TrimSpace(input.MiddleName),
		BirthDate:  input.BirthDate,
	}

	switch role {
	case models.RoleProfessor:
		user.Department = strings.TrimSpace(input.Department)
		user.Position = strings.TrimSpace(input.Position)
	default:
		user.Faculty = strings.TrimSpace(input.Faculty)
		user.StudyGroup = strings.TrimSpace(input.StudyGroup)
		user.Course = input.Course
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Model(&models.VerificationCode{}).
			Where("id = ?", proof.ID).
			Update("user_id", user.ID).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return nil, apperrors.ErrDuplicateHandle
			}
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("registration service: create account: %w", err)
	}

	metrics.RegistrationsCompleted.WithLabelValues(string(role)).Inc()

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:    &user.ID,
		Email:     email,
		Action:    "registration.completed",
		Result:    "success",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  map[string]any{"role": string(role), "username": username},
	})

	return user, nil
}

func (s *RegistrationService) codeEmailBody(record *models.VerificationCode) string {
	minutes := int(time.Until(record.ExpiresAt).Round(time.Minute).Minutes())
	if minutes <= 0 {
		minutes = 1
	}
	return fmt.Sprintf(
		"Welcome to CampusLink!\n\nYour verification code is: %s\n\nThe code expires in %d minutes. If you did not request it, ignore this message.\n",
		record.Code, minutes,
	)
}
