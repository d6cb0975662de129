package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/handlers"
	"github.com/nguyenvh/custodesk/internal/middleware"
	"github.com/nguyenvh/custodesk/internal/notifications"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/services"
)

// Dependencies bundles the wired services the router mounts.
type Dependencies struct {
	JWT            *iauth.JWTService
	Provider       *iauth.LocalProvider
	Staff          *services.StaffService
	Reminders      *services.ReminderService
	Transactions   *services.TransactionService
	Notifications  *services.NotificationService
	Events         *services.SystemEventService
	Hub            *notifications.Hub
	Push           *push.Gateway
	VAPIDPublicKey string
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("auth provider must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("notification hub must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Public endpoints
	r.GET("/api/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Provider, deps.JWT, deps.Staff)
	r.POST("/api/auth/login", authHandler.Login)

	requireAuth := middleware.Auth(deps.JWT)
	requireAdmin := middleware.RequireAdmin()

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	registerReminderRoutes(api, handlers.NewReminderHandler(deps.Reminders), requireAdmin)
	registerTransactionRoutes(api, handlers.NewTransactionHandler(deps.Transactions), requireAdmin)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications, deps.Hub))
	registerStaffRoutes(api, handlers.NewStaffHandler(deps.Staff, deps.Provider), requireAdmin)

	pushHandler := handlers.NewPushHandler(deps.Push, deps.VAPIDPublicKey)
	api.GET("/push/key", pushHandler.Key)
	api.POST("/push/subscribe", pushHandler.Subscribe)

	api.GET("/events", requireAdmin, handlers.NewEventHandler(deps.Events).List)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
