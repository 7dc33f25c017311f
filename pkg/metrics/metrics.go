package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuslink_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// VerificationCodesIssued counts verification codes issued for registration.
	VerificationCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campuslink_verification_codes_issued_total",
			Help: "Total number of email verification codes issued",
		},
	)

	// VerificationAttempts counts code submissions by outcome
	// (success|mismatch|expired|exhausted).
	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuslink_verification_attempts_total",
			Help: "Total number of verification code submissions",
		},
		[]string{"outcome"},
	)

	// RegistrationsCompleted counts completed registrations by resolved role.
	RegistrationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuslink_registrations_completed_total",
			Help: "Total number of completed registrations",
		},
		[]string{"role"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campuslink_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campuslink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
