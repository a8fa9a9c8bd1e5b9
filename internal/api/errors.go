package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/service"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
)

// ErrInvalidID is returned for path parameters that are not UUIDs.
var ErrInvalidID = errors.New("invalid identifier")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, orchestrator.ErrValidation),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerStopped),
		errors.Is(err, service.ErrJobsDisabled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	// Batch validation messages only describe the request itself.
	var validationErr *orchestrator.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	switch {
	case errors.Is(err, store.ErrArtifactNotFound):
		return "Problem not found"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Generation job not found"
	case errors.Is(err, ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, service.ErrEmptyQuery):
		return "Search term is required"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many generation jobs in progress, try again later"
	case errors.Is(err, task.ErrRunnerStopped):
		return "Server is shutting down"
	case errors.Is(err, service.ErrJobsDisabled):
		return "Background generation is not available"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid problem data"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// replaces the safe default for the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}
