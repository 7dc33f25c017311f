package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/handlers"
)

func registerProfileRoutes(api *gin.RouterGroup, svcs Services) {
	handler := handlers.NewProfileHandler(svcs.Users)

	profile := api.Group("/profile")
	{
		profile.GET("", handler.Get)
		profile.PUT("", handler.Update)
		profile.POST("/password", handler.ChangePassword)
	}
}

func registerUserRoutes(api *gin.RouterGroup, svcs Services) {
	handler := handlers.NewUserHandler(svcs.Users)

	users := api.Group("/users")
	{
		users.GET("", handler.List)
		users.GET("/:username", handler.Get)
	}
}
