package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/handlers"
)

func registerStaffRoutes(api *gin.RouterGroup, handler *handlers.StaffHandler, requireAdmin gin.HandlerFunc) {
	group := api.Group("/staff")
	group.Use(requireAdmin)
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.PUT("/:username", handler.Update)
		group.POST("/:username/unlock", handler.Unlock)
	}
}
