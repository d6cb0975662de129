package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// EventHandler exposes the system event log for the admin health dashboard.
type EventHandler struct {
	events *services.SystemEventService
}

func NewEventHandler(events *services.SystemEventService) *EventHandler {
	return &EventHandler{events: events}
}

// GET /api/events (admin)
func (h *EventHandler) List(c *gin.Context) {
	rows, err := h.events.List(requestContext(c), services.ListSystemEventsInput{
		Severity: c.Query("severity"),
		Source:   c.Query("source"),
		Limit:    queryInt(c, "limit"),
		Offset:   queryInt(c, "offset"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}
