package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// AppError is a custom error type that includes an HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest = NewAppError(http.StatusBadRequest, "Invalid request parameters")
	ErrUnauthorized   = NewAppError(http.StatusUnauthorized, "Authentication required")
	ErrForbidden      = NewAppError(http.StatusForbidden, "Access denied")
	ErrNotFound       = NewAppError(http.StatusNotFound, "Resource not found")
	ErrInternalServer = NewAppError(http.StatusInternalServerError, "Internal server error")
	ErrRateLimit      = NewAppError(http.StatusTooManyRequests, "Rate limit exceeded")
)

func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg)
}

// Conflict is returned for state clashes: already completed, already a member, group full.
func Conflict(msg string) *AppError {
	return NewAppError(http.StatusConflict, msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg)
}

// From unwraps err into an *AppError if one is anywhere in its chain.
func From(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an AppError with the given status code.
func Is(err error, code int) bool {
	appErr, ok := From(err)
	return ok && appErr.Code == code
}

var fieldMessages = map[string]string{
	"required":     "is required",
	"email":        "must be a valid email address",
	"min":          "is too short",
	"max":          "is too long",
	"gte":          "is below the allowed minimum",
	"lte":          "is above the allowed maximum",
	"difficulty":   "must be one of easy, medium, hard",
	"goalcategory": "is not a known goal category",
	"privacy":      "must be public or private",
	"required_if":  "is required",
}

// ValidationMessages converts validator errors into field -> message pairs.
// It returns nil when err is not a validation failure.
func ValidationMessages(err error) []map[string]string {
	var validationErr validator.ValidationErrors
	if !stderrors.As(err, &validationErr) {
		return nil
	}

	errList := make([]map[string]string, 0, len(validationErr))
	for _, e := range validationErr {
		msg, ok := fieldMessages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on the '%s' rule", e.Tag())
		}
		errList = append(errList, map[string]string{e.Field(): msg})
	}
	return errList
}
