package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/handlers"
)

func registerReminderRoutes(api *gin.RouterGroup, handler *handlers.ReminderHandler, requireAdmin gin.HandlerFunc) {
	group := api.Group("/reminders")
	{
		group.GET("", handler.List)
		group.GET("/sent", handler.ListSent)
		group.GET("/:id", handler.Get)

		group.POST("", requireAdmin, handler.Create)
		group.PUT("/:id", requireAdmin, handler.Update)
		group.DELETE("/:id", requireAdmin, handler.Delete)

		group.POST("/send-due", requireAdmin, handler.SendDue)
		group.POST("/:id/send", requireAdmin, handler.SendOne)
		group.POST("/:id/reset", requireAdmin, handler.Reset)
	}
}
