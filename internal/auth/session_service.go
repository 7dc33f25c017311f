package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/pkg/crypto"
	"github.com/campuslink/campuslink-server/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session that has been revoked.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a refresh token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied refresh token is malformed.
	ErrSessionInvalidToken = errors.New("session: invalid token")
	// ErrSessionUserInactive is returned when the account behind a session is not active.
	ErrSessionUserInactive = errors.New("session: user inactive")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache represents a cache backend for session objects keyed by refresh token.
type SessionCache interface {
	Get(ctx context.Context, refreshToken string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, refreshToken string) error
}

// SessionService manages the single durable credential each user holds.
// Issue reuses a live session when one exists, Refresh rotates the refresh
// token in place, and Revoke invalidates it until the next login.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	length := cfg.RefreshLength
	if length <= 0 {
		length = 48
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenLen:   length,
		now:        clock,
		cache:      cfg.Cache,
	}, nil
}

// Issue returns a token pair for the user, reusing the existing session row
// when one is still live and minting a fresh one otherwise. Inactive accounts
// never receive credentials.
func (s *SessionService) Issue(userID string, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, nil, errors.New("session service: user id is required")
	}

	var user models.User
	err := s.db.Select("id", "role", "is_active").Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: load user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, nil, ErrSessionUserInactive
	}

	now := s.now()

	var session models.Session
	err = s.db.Take(&session, "user_id = ?", userID).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"last_used_at": now,
			"ip_address":   strings.TrimSpace(meta.IPAddress),
			"user_agent":   strings.TrimSpace(meta.UserAgent),
		}
		if session.RevokedAt != nil || session.ExpiresAt.Before(now) {
			refreshToken, tokenErr := crypto.GenerateToken(s.tokenLen)
			if tokenErr != nil {
				return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", tokenErr)
			}
			if s.cache != nil {
				_ = s.cache.Delete(context.Background(), session.RefreshToken)
			}
			updates["refresh_token"] = refreshToken
			updates["expires_at"] = now.Add(s.refreshTTL)
			updates["revoked_at"] = nil
			session.RefreshToken = refreshToken
			session.ExpiresAt = now.Add(s.refreshTTL)
			session.RevokedAt = nil
			metrics.ActiveSessions.Inc()
		}
		if err := s.db.Model(&session).Updates(updates).Error; err != nil {
			return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", err)
		}
		session.LastUsedAt = now

	case errors.Is(err, gorm.ErrRecordNotFound):
		refreshToken, tokenErr := crypto.GenerateToken(s.tokenLen)
		if tokenErr != nil {
			return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", tokenErr)
		}
		session = models.Session{
			UserID:       userID,
			RefreshToken: refreshToken,
			IPAddress:    strings.TrimSpace(meta.IPAddress),
			UserAgent:    strings.TrimSpace(meta.UserAgent),
			ExpiresAt:    now.Add(s.refreshTTL),
			LastUsedAt:   now,
		}
		if err := s.db.Create(&session).Error; err != nil {
			return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
		}
		metrics.ActiveSessions.Inc()

	default:
		return TokenPair{}, nil, fmt.Errorf("session service: find session: %w", err)
	}

	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    userID,
		SessionID: session.ID,
		Role:      string(user.Role),
	})
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate access token: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(context.Background(), &session, time.Until(session.ExpiresAt))
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
	}, &session, nil
}

// Refresh rotates the refresh token and issues a new access token. The old
// refresh token stops working immediately; callers holding it must switch to
// the returned pair.
func (s *SessionService) Refresh(refreshToken string) (TokenPair, *models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	var session models.Session
	var cacheHit bool

	if s.cache != nil {
		if cached, cacheErr := s.cache.Get(context.Background(), refreshToken); cacheErr == nil && cached != nil {
			session = *cached
			cacheHit = true
		}
	}

	if !cacheHit {
		err := s.db.Where("refresh_token = ?", refreshToken).Take(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, nil, ErrSessionNotFound
		}
		if err != nil {
			return TokenPair{}, nil, fmt.Errorf("session service: find session: %w", err)
		}
	}

	now := s.now()

	if session.RevokedAt != nil {
		return TokenPair{}, nil, ErrSessionRevoked
	}

	if session.ExpiresAt.Before(now) {
		return TokenPair{}, nil, ErrSessionExpired
	}

	var user models.User
	err := s.db.Select("id", "role", "is_active").Take(&user, "id = ?", session.UserID).Error
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: load user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, nil, ErrSessionUserInactive
	}

	newRefresh, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	updates := map[string]any{
		"refresh_token": newRefresh,
		"expires_at":    now.Add(s.refreshTTL),
		"last_used_at":  now,
	}

	if err := s.db.Model(&session).Updates(updates).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", err)
	}

	session.RefreshToken = newRefresh
	session.ExpiresAt = updates["expires_at"].(time.Time)
	session.LastUsedAt = now

	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		SessionID: session.ID,
		Role:      string(user.Role),
	})
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate access token: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(context.Background(), refreshToken)
		ttl := time.Until(session.ExpiresAt)
		if ttl <= 0 {
			ttl = s.refreshTTL
		}
		_ = s.cache.Set(context.Background(), &session, ttl)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, &session, nil
}

// Revoke marks a session as revoked, preventing further refresh operations.
func (s *SessionService) Revoke(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	now := s.now()

	var tokenToDelete string
	if s.cache != nil {
		var session models.Session
		if err := s.db.Select("refresh_token").Take(&session, "id = ?", sessionID).Error; err == nil {
			tokenToDelete = session.RefreshToken
		}
	}

	result := s.db.Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Updates(map[string]any{
			"revoked_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	if s.cache != nil && tokenToDelete != "" {
		_ = s.cache.Delete(context.Background(), tokenToDelete)
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	return nil
}

// CleanupExpired removes expired sessions and updates active session metrics accordingly.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}
