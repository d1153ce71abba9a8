package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/response"
)

// ErrorHandlerMiddleware recovers panics and renders errors attached with
// c.Error into the response envelope.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				response.Abort(c, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			response.Error(c, c.Errors.Last().Err)
		}
	}
}
