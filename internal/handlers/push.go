package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/push"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// PushHandler registers browser push subscriptions.
type PushHandler struct {
	gateway *push.Gateway
	public  string
}

func NewPushHandler(gateway *push.Gateway, vapidPublicKey string) *PushHandler {
	return &PushHandler{gateway: gateway, public: vapidPublicKey}
}

// GET /api/push/key returns the VAPID public key the service worker needs
// to subscribe.
func (h *PushHandler) Key(c *gin.Context) {
	if !h.gateway.Enabled() {
		response.Error(c, apperrors.ErrSystemConfiguration.WithMessage("push delivery is not configured"))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"public_key": h.public})
}

// POST /api/push/subscribe
func (h *PushHandler) Subscribe(c *gin.Context) {
	var sub models.WebPushSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid subscription payload"))
		return
	}

	if err := h.gateway.Upsert(requestContext(c), currentUsername(c), sub); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"subscribed": true})
}
