// Package response renders the JSON envelope every API endpoint shares:
// {"success": true, "data": ...} on the happy path and
// {"success": false, "error": {"code", "message"}} otherwise.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data inside a success envelope.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// Error normalises err through the AppError taxonomy and writes the
// corresponding failure envelope. Unknown errors surface as a 500 without
// leaking internals to the client.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = apperrors.ErrInternalServer
	}

	appErr := apperrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, envelope{
		Success: false,
		Error:   &errorBody{Code: appErr.Code, Message: appErr.Message},
	})
}
