package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to HTTP status codes.
var (
	// ErrEmptyQuery indicates a search without a search term.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyQuery = errors.New("search term cannot be empty")

	// ErrJobsDisabled indicates that background generation is not configured.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrJobsDisabled = errors.New("background generation is not available")
)

// ProblemServiceError wraps unexpected failures of a problem service
// operation. Sentinel errors from the stores stay reachable through Unwrap.
type ProblemServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ProblemServiceError.
func (e *ProblemServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("problem service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("problem service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ProblemServiceError) Unwrap() error {
	return e.Err
}

// NewProblemServiceError creates a new ProblemServiceError.
func NewProblemServiceError(operation, message string, err error) *ProblemServiceError {
	return &ProblemServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
