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
	"github.com/campuslink/campuslink-server/pkg/metrics"
)

// UpdateProfileInput enumerates the profile attributes a user may change.
// Role-specific fields are ignored when they do not apply to the account.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
	AvatarURL  *string
	Bio        *string
	BirthDate  *time.Time

	Faculty    *string
	StudyGroup *string
	Course     *int

	Department *string
	Position   *string
}

// UserFilters captures listing filters for the people directory.
type UserFilters struct {
	Role    models.Role
	Faculty string
	Query   string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages accounts and profiles after registration.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
	now          func() time.Time
}

// UserOption customises the UserService.
type UserOption func(*UserService)

// WithUserClock injects a custom time source.
func WithUserClock(clock func() time.Time) UserOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}

	service := &UserService{
		db:           db,
		auditService: auditService,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Authenticate verifies a login by username or email plus password. Inactive
// accounts are rejected even with correct credentials.
func (s *UserService) Authenticate(ctx context.Context, login, password string, meta RequestMetadata) (*models.User, error) {
	ctx = ensureContext(ctx)

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, normaliseEmail(login)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:    &user.ID,
			Email:     user.Email,
			Action:    "auth.login",
			Result:    "invalid_credentials",
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("inactive").Inc()
		recordAudit(s.auditService, ctx, AuditEntry{
			UserID:    &user.ID,
			Email:     user.Email,
			Action:    "auth.login",
			Result:    "inactive",
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return nil, apperrors.ErrAccountInactive
	}

	now := s.now()
	updates := map[string]any{"last_login_at": now}
	if ip := strings.TrimSpace(meta.IPAddress); ip != "" {
		updates["last_login_ip"] = ip
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:    &user.ID,
		Email:     user.Email,
		Action:    "auth.login",
		Result:    "success",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByUsername loads an active user's public profile.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.TrimSpace(username), true).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List retrieves active users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ?", true)
	if opts.Filters.Role != "" {
		query = query.Where("role = ?", opts.Filters.Role)
	}
	if faculty := strings.TrimSpace(opts.Filters.Faculty); faculty != "" {
		query = query.Where("faculty = ?", faculty)
	}
	if q := strings.TrimSpace(opts.Filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// UpdateProfile persists mutable profile attributes for the user.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.MiddleName != nil {
		updates["middle_name"] = strings.TrimSpace(*input.MiddleName)
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.BirthDate != nil {
		updates["birth_date"] = *input.BirthDate
	}

	switch user.Role {
	case models.RoleProfessor:
		if input.Department != nil {
			updates["department"] = strings.TrimSpace(*input.Department)
		}
		if input.Position != nil {
			updates["position"] = strings.TrimSpace(*input.Position)
		}
	default:
		if input.Faculty != nil {
			updates["faculty"] = strings.TrimSpace(*input.Faculty)
		}
		if input.StudyGroup != nil {
			updates["study_group"] = strings.TrimSpace(*input.StudyGroup)
		}
		if input.Course != nil {
			updates["course"] = *input.Course
		}
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}

	return s.GetByID(ctx, id)
}

// ChangePassword replaces the user's password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, replacement string) error {
	ctx = ensureContext(ctx)

	if len(replacement) < minPasswordLength {
		return apperrors.ErrWeakPassword
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Password, current) {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := crypto.HashPassword(replacement)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID: &user.ID,
		Email:  user.Email,
		Action: "auth.password_changed",
		Result: "success",
	})

	return nil
}

// SetActive toggles an account's active flag. Operators use it to suspend
// accounts; registration activates accounts without going through here.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("user service: set active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
