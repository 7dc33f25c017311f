package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/handlers"
)

func registerEventRoutes(api *gin.RouterGroup, svcs Services) {
	handler := handlers.NewEventHandler(svcs.Events)

	events := api.Group("/events")
	{
		events.GET("", handler.List)
		events.POST("", handler.Create)
		events.GET("/calendar/:year/:month", handler.Calendar)
		events.GET("/:id", handler.Get)
		events.PUT("/:id", handler.Update)
		events.DELETE("/:id", handler.Delete)
		events.POST("/:id/join", handler.Join)
		events.POST("/:id/leave", handler.Leave)
		events.POST("/:id/reviews", handler.SubmitReview)
	}
}
