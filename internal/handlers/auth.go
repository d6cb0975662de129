package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/services"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// AuthHandler manages login, logout, and the current-user lookup.
type AuthHandler struct {
	provider *iauth.LocalProvider
	jwt      *iauth.JWTService
	staff    *services.StaffService
}

func NewAuthHandler(provider *iauth.LocalProvider, jwt *iauth.JWTService, staff *services.StaffService) *AuthHandler {
	return &AuthHandler{provider: provider, jwt: jwt, staff: staff}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	staff, err := h.provider.Authenticate(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, iauth.ErrAccountLocked):
			response.Error(c, apperrors.ErrAccountLocked)
		case errors.Is(err, iauth.ErrAccountDisabled):
			response.Error(c, apperrors.ErrForbidden)
		default:
			response.Error(c, apperrors.ErrInvalidCredentials)
		}
		return
	}

	token, err := h.jwt.GenerateAccessToken(staff.Username, staff.Role)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"username":     staff.Username,
			"display_name": staff.DisplayName,
			"email":        staff.Email,
			"role":         staff.Role,
			"department":   staff.Department,
		},
	})
}

// POST /api/auth/logout
//
// Access tokens are stateless, so logout is client-side token disposal;
// the endpoint exists so clients have a uniform call to finish a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username := currentUsername(c)
	if username == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	staff, err := h.staff.GetByUsername(requestContext(c), username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"username":     staff.Username,
		"display_name": staff.DisplayName,
		"email":        staff.Email,
		"role":         staff.Role,
		"department":   staff.Department,
		"status":       staff.AccountStatus,
	})
}
