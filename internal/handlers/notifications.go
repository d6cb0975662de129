package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/notifications"
	"github.com/nguyenvh/custodesk/internal/services"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// NotificationHandler exposes the in-app notification feed and its
// websocket stream.
type NotificationHandler struct {
	notifications *services.NotificationService
	hub           *notifications.Hub
}

func NewNotificationHandler(svc *services.NotificationService, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: svc, hub: hub}
}

// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	rows, err := h.notifications.ListForUser(requestContext(c), services.ListNotificationsInput{
		Username:   currentUsername(c),
		UnreadOnly: c.Query("unread") == "true",
		Limit:      queryInt(c, "limit"),
		Offset:     queryInt(c, "offset"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.notifications.UnreadCount(requestContext(c), currentUsername(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"notifications": rows,
		"unread_count":  count,
	})
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notification, err := h.notifications.MarkRead(requestContext(c), currentUsername(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(requestContext(c), currentUsername(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

type markSeenRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// POST /api/notifications/seen
func (h *NotificationHandler) MarkSeen(c *gin.Context) {
	var req markSeenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.notifications.MarkSeen(requestContext(c), currentUsername(c), req.IDs); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"seen": true})
}

type replyRequest struct {
	Message string `json:"message" validate:"required"`
}

// POST /api/notifications/:id/reply
func (h *NotificationHandler) Reply(c *gin.Context) {
	var req replyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reply, err := h.notifications.Reply(requestContext(c), currentUsername(c), c.Param("id"), req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, reply)
}

// GET /api/notifications/stream (websocket)
func (h *NotificationHandler) Stream(c *gin.Context) {
	username := currentUsername(c)
	if username == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	h.hub.Serve(username, c.Writer, c.Request)
}
