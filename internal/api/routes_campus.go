package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/handlers"
	"github.com/campuslink/campuslink-server/internal/middleware"
	"github.com/campuslink/campuslink-server/internal/models"
)

func registerCampusRoutes(api *gin.RouterGroup, svcs Services) {
	handler := handlers.NewCampusHandler(svcs.Campus)
	requireAdmin := middleware.RequireRoles(string(models.RoleAdmin))

	campus := api.Group("/campus")
	{
		campus.GET("/buildings", handler.ListBuildings)
		campus.POST("/buildings", requireAdmin, handler.CreateBuilding)
		campus.GET("/buildings/:id", handler.GetBuilding)
		campus.GET("/buildings/:id/stats", handler.BuildingStats)
		campus.DELETE("/buildings/:id", requireAdmin, handler.DeleteBuilding)

		campus.GET("/rooms", handler.ListRooms)
		campus.POST("/rooms", requireAdmin, handler.CreateRoom)
		campus.GET("/rooms/:id", handler.GetRoom)
		campus.GET("/rooms/:id/stats", handler.RoomStats)
		campus.POST("/rooms/:id/reviews", handler.SubmitRoomReview)
		campus.DELETE("/reviews/:id", handler.DeleteRoomReview)
	}
}
