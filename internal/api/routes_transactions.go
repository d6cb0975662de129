package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/handlers"
)

func registerTransactionRoutes(api *gin.RouterGroup, handler *handlers.TransactionHandler, requireAdmin gin.HandlerFunc) {
	group := api.Group("/transactions")
	{
		group.GET("", handler.List)
		group.GET("/defaults", handler.Defaults)
		group.GET("/export", handler.Export)
		group.GET("/:id", handler.Get)
		group.POST("", handler.Create)

		group.POST("/import", requireAdmin, handler.Import)
		group.DELETE("/:id", requireAdmin, handler.Delete)
	}
}
