package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/services"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// StaffHandler exposes admin staff management.
type StaffHandler struct {
	staff    *services.StaffService
	provider *iauth.LocalProvider
}

func NewStaffHandler(staff *services.StaffService, provider *iauth.LocalProvider) *StaffHandler {
	return &StaffHandler{staff: staff, provider: provider}
}

type createStaffRequest struct {
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"omitempty,oneof=admin user"`
	Department  string `json:"department"`
}

// POST /api/staff (admin)
func (h *StaffHandler) Create(c *gin.Context) {
	var req createStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}

	staff, err := h.staff.Create(requestContext(c), services.CreateStaffInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Department:  req.Department,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, staff)
}

// GET /api/staff (admin)
func (h *StaffHandler) List(c *gin.Context) {
	rows, err := h.staff.List(requestContext(c), services.ListStaffInput{
		Department: c.Query("department"),
		Status:     c.Query("status"),
		Limit:      queryInt(c, "limit"),
		Offset:     queryInt(c, "offset"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

type updateStaffRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	Department  *string `json:"department"`
	Status      *string `json:"status"`
}

// PUT /api/staff/:username (admin)
func (h *StaffHandler) Update(c *gin.Context) {
	var req updateStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}

	staff, err := h.staff.Update(requestContext(c), c.Param("username"), services.UpdateStaffInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Role:        req.Role,
		Department:  req.Department,
		Status:      req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, staff)
}

// POST /api/staff/:username/unlock (admin)
func (h *StaffHandler) Unlock(c *gin.Context) {
	if err := h.provider.Unlock(c.Param("username")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrNotFound.WithMessage("no locked account with that username"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unlocked": true})
}
