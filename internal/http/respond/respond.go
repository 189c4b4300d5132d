package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/service"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Success writes a success envelope.
func Success(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, Envelope{
		StatusCode: statusCode,
		Status:     true,
		Message:    message,
		Data:       data,
	})
}

// Fail writes an error envelope with an explicit status and message.
func Fail(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Envelope{
		StatusCode: statusCode,
		Status:     false,
		Message:    message,
	})
}

// AbortFail writes an error envelope and stops the handler chain.
func AbortFail(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Envelope{
		StatusCode: statusCode,
		Status:     false,
		Message:    message,
	})
}

// Error maps any fault to exactly one envelope. Tagged AuthErrors resolve to
// their own status and message; everything else is logged in full and
// returned as a generic internal error, with the underlying message exposed
// only in development mode.
func Error(c *gin.Context, err error, development bool) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, Envelope{
			StatusCode: authErr.Status,
			Status:     false,
			Message:    authErr.Message,
		})
		return
	}

	zap.L().Error("request failed", zap.Error(err))

	envelope := Envelope{
		StatusCode: http.StatusInternalServerError,
		Status:     false,
		Message:    "Internal server error",
	}
	if development {
		envelope.Details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, envelope)
}
