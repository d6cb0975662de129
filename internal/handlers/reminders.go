package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/internal/worktime"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// ReminderHandler exposes the reminder lifecycle over HTTP.
type ReminderHandler struct {
	reminders *services.ReminderService
}

func NewReminderHandler(reminders *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

type reminderRequest struct {
	SubjectName     string                 `json:"subject_name" validate:"required"`
	DueDayMonth     string                 `json:"due_day_month" validate:"required"`
	AssignedParties []models.AssignedParty `json:"assigned_parties"`
}

// POST /api/reminders
func (h *ReminderHandler) Create(c *gin.Context) {
	var req reminderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reminder, err := h.reminders.Create(requestContext(c), services.CreateReminderInput{
		SubjectName:     req.SubjectName,
		DueDayMonth:     req.DueDayMonth,
		AssignedParties: req.AssignedParties,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, reminder)
}

// GET /api/reminders
func (h *ReminderHandler) List(c *gin.Context) {
	rows, err := h.reminders.List(requestContext(c), services.ListRemindersInput{
		OnlyPending: c.Query("pending") == "true",
		Limit:       queryInt(c, "limit"),
		Offset:      queryInt(c, "offset"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// GET /api/reminders/:id
func (h *ReminderHandler) Get(c *gin.Context) {
	reminder, err := h.reminders.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, reminder)
}

type reminderUpdateRequest struct {
	SubjectName     *string                `json:"subject_name"`
	DueDayMonth     *string                `json:"due_day_month"`
	AssignedParties []models.AssignedParty `json:"assigned_parties"`
}

// PUT /api/reminders/:id
func (h *ReminderHandler) Update(c *gin.Context) {
	var req reminderUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reminder, err := h.reminders.Update(requestContext(c), c.Param("id"), services.UpdateReminderInput{
		SubjectName:     req.SubjectName,
		DueDayMonth:     req.DueDayMonth,
		AssignedParties: req.AssignedParties,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, reminder)
}

// DELETE /api/reminders/:id
func (h *ReminderHandler) Delete(c *gin.Context) {
	if err := h.reminders.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/reminders/send-due (admin)
func (h *ReminderHandler) SendDue(c *gin.Context) {
	summary, err := h.reminders.SendDue(requestContext(c), time.Now().In(worktime.Location))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// POST /api/reminders/:id/send (admin)
func (h *ReminderHandler) SendOne(c *gin.Context) {
	result, err := h.reminders.SendOne(requestContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAlreadySent) {
			response.Error(c, apperrors.NewBadRequest("reminder already sent this cycle"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/reminders/:id/reset (admin)
func (h *ReminderHandler) Reset(c *gin.Context) {
	reminder, err := h.reminders.Reset(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, reminder)
}

// GET /api/reminders/sent
func (h *ReminderHandler) ListSent(c *gin.Context) {
	rows, err := h.reminders.ListSent(requestContext(c), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
