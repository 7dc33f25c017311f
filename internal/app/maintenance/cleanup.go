package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/campuslink/campuslink-server/internal/auth"
	"github.com/campuslink/campuslink-server/internal/services"
	"github.com/campuslink/campuslink-server/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultCodeRetention      = 24 * time.Hour
	defaultSessionSpec        = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultCodeSpec           = "@hourly"
)

// Cleaner coordinates background maintenance tasks such as purging expired sessions,
// removing stale verification codes, and pruning old audit logs.
type Cleaner struct {
	sessions     *iauth.SessionService
	verification *services.VerificationService
	audit        *services.AuditService
	cron         *cron.Cron
	log          *zap.Logger
	enabled      bool

	auditRetention int
	codeRetention  time.Duration

	sessionSchedule string
	auditSchedule   string
	codeSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithCodeRetention adjusts how long expired or consumed verification codes linger
// before being deleted.
func WithCodeRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.codeRetention = retention
		}
	}
}

// WithSessionSchedule overrides the cron schedule for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron schedule for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithCodeSchedule overrides the cron schedule for verification code cleanup.
func WithCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.codeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(sessions *iauth.SessionService, verification *services.VerificationService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		verification:    verification,
		audit:           audit,
		auditRetention:  defaultAuditRetentionDays,
		codeRetention:   defaultCodeRetention,
		sessionSchedule: defaultSessionSpec,
		auditSchedule:   defaultAuditSpec,
		codeSchedule:    defaultCodeSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.verification != nil || cleaner.audit != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			ctx := context.Background()
			if _, err := c.sessions.CleanupExpired(ctx); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.verification != nil && c.codeRetention > 0 {
		if _, err := c.cron.AddFunc(c.codeSchedule, func() {
			ctx := context.Background()
			if _, err := c.verification.CleanupExpired(ctx, c.codeRetention); err != nil {
				c.log.Warn("verification code cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.verification != nil && c.codeRetention > 0 {
		if _, err := c.verification.CleanupExpired(ctx, c.codeRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
