// Package response renders the uniform JSON envelope used by every endpoint:
// {success, message, data?, error?}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pushp314/commit-backend/pkg/errors"
	"github.com/pushp314/commit-backend/pkg/logger"
)

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failed envelope without aborting the chain.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// Abort writes a failed envelope and stops the handler chain. Used by middleware.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}

// Error maps err onto the envelope. AppErrors keep their status and message,
// validation errors become 400 with per-field details, anything else is a 500.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.From(err); ok {
		c.JSON(appErr.Code, Envelope{Success: false, Message: appErr.Message})
		return
	}

	if details := apperrors.ValidationMessages(err); details != nil {
		c.JSON(http.StatusBadRequest, Envelope{
			Success: false,
			Message: "Validation failed",
			Details: details,
		})
		return
	}

	userID := c.GetString("userId")
	logger.Error().Err(err).Str("path", c.FullPath()).Str("user_id", userID).Msg("Unhandled request error")

	env := Envelope{Success: false, Message: "Internal server error"}
	if gin.Mode() != gin.ReleaseMode {
		env.Error = err.Error()
	}
	c.JSON(http.StatusInternalServerError, env)
}

// BindError reports a failed ShouldBind* call. It is always a 400.
func BindError(c *gin.Context, err error) {
	if details := apperrors.ValidationMessages(err); details != nil {
		c.JSON(http.StatusBadRequest, Envelope{
			Success: false,
			Message: "Validation failed",
			Details: details,
		})
		return
	}
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: "Invalid request body",
		Error:   err.Error(),
	})
}
