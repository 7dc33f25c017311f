package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/handlers"
)

func registerFeedRoutes(api *gin.RouterGroup, svcs Services) {
	handler := handlers.NewPostHandler(svcs.Posts)

	posts := api.Group("/posts")
	{
		posts.GET("", handler.List)
		posts.POST("", handler.Create)
		posts.GET("/:id", handler.Get)
		posts.PUT("/:id", handler.Update)
		posts.DELETE("/:id", handler.Delete)
		posts.POST("/:id/like", handler.ToggleLike)
		posts.GET("/:id/comments", handler.ListComments)
		posts.POST("/:id/comments", handler.AddComment)
	}

	api.DELETE("/comments/:id", handler.DeleteComment)
}
