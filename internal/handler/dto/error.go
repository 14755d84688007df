package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/verdantops/growtask/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code string, message string) {
	message = err.Error()

	switch {
	// Task errors
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", message
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", message
	case errors.Is(err, domain.ErrBlockingReasonSet):
		return http.StatusConflict, "BLOCKING_REASON_SET", message
	case errors.Is(err, domain.ErrTaskNotReady):
		return http.StatusConflict, "TASK_NOT_READY", message
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, "CONCURRENT_MODIFICATION", message

	// Dependency errors
	case errors.Is(err, domain.ErrSelfDependency):
		return http.StatusUnprocessableEntity, "SELF_DEPENDENCY", message
	case errors.Is(err, domain.ErrDependencyTaskMissing):
		return http.StatusUnprocessableEntity, "DEPENDENCY_TASK_MISSING", message

	// User errors
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "USER_NOT_FOUND", message
	case errors.Is(err, domain.ErrUserInactive):
		return http.StatusUnauthorized, "USER_INACTIVE", message
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", message

	// Site errors
	case errors.Is(err, domain.ErrSiteNotFound):
		return http.StatusNotFound, "SITE_NOT_FOUND", message

	// Time entry errors
	case errors.Is(err, domain.ErrTimeEntryNotFound):
		return http.StatusNotFound, "TIME_ENTRY_NOT_FOUND", message

	// Validation errors
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrInvalidPriority):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message

	// Default: internal server error
	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
