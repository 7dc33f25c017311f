package api

import (
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/campuslink/campuslink-server/internal/auth"
	"github.com/campuslink/campuslink-server/internal/handlers"
	"github.com/campuslink/campuslink-server/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, requireAuth gin.HandlerFunc, svcs Services, sessions *iauth.SessionService) {
	authHandler := handlers.NewAuthHandler(svcs.Users, sessions)
	registrationHandler := handlers.NewRegistrationHandler(svcs.Registration, sessions, svcs.RateStore)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Code requests are throttled harder than the rest of the API.
	register := auth.Group("/register")
	register.Use(middleware.RateLimitWithStore(svcs.RateStore, 5, time.Minute))
	{
		register.POST("/request-code", registrationHandler.RequestCode)
		register.POST("/verify-code", registrationHandler.VerifyCode)
		register.POST("/complete", registrationHandler.Complete)
	}

	// Authenticated auth routes
	session := r.Group("/api/auth")
	session.Use(requireAuth)
	{
		session.GET("/me", authHandler.Me)
		session.POST("/logout", authHandler.Logout)
	}
}
