package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/stream", handler.Stream)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/seen", handler.MarkSeen)
		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/reply", handler.Reply)
	}
}
