package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/campuslink/campuslink-server/internal/auth"
	"github.com/campuslink/campuslink-server/internal/handlers"
	"github.com/campuslink/campuslink-server/internal/middleware"
	"github.com/campuslink/campuslink-server/internal/services"
)

// Services bundles the domain services the router exposes over HTTP.
type Services struct {
	Users        *services.UserService
	Registration *services.RegistrationService
	Posts        *services.PostService
	Campus       *services.CampusService
	Events       *services.EventService
	Audit        *services.AuditService

	// RateStore is optional; when set, rate limiting counters survive restarts
	// and are shared between instances.
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, sessions *iauth.SessionService, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if svcs.Users == nil || svcs.Registration == nil || svcs.Posts == nil || svcs.Campus == nil || svcs.Events == nil || svcs.Audit == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimitWithStore(svcs.RateStore, 100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	requireAuth := middleware.Auth(jwt)

	registerAuthRoutes(r, requireAuth, svcs, sessions)

	api := r.Group("/api")
	api.Use(requireAuth)

	registerProfileRoutes(api, svcs)
	registerUserRoutes(api, svcs)
	registerFeedRoutes(api, svcs)
	registerCampusRoutes(api, svcs)
	registerEventRoutes(api, svcs)
	registerAdminRoutes(api, svcs)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
