package app

import (
	"github.com/campuslink/campuslink-server/internal/services"
)

// VerificationOptions converts RegistrationConfig into VerificationService options.
// Zero or negative values fall back to the service defaults.
func (c RegistrationConfig) VerificationOptions() []services.VerificationOption {
	var opts []services.VerificationOption

	if c.CodeTTL > 0 {
		opts = append(opts, services.WithVerificationExpiry(c.CodeTTL))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, services.WithVerificationMaxChecks(c.MaxAttempts))
	}

	return opts
}
