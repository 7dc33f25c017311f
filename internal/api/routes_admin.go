package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/handlers"
	"github.com/campuslink/campuslink-server/internal/middleware"
	"github.com/campuslink/campuslink-server/internal/models"
)

func registerAdminRoutes(api *gin.RouterGroup, svcs Services) {
	auditHandler := handlers.NewAuditHandler(svcs.Audit)
	userHandler := handlers.NewUserHandler(svcs.Users)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(string(models.RoleAdmin)))
	{
		admin.GET("/audit", auditHandler.List)
		admin.PUT("/users/:id/active", userHandler.SetActive)
	}
}
