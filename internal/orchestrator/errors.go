package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("invalid generation request")

	// ErrInvalidConfig is returned by New for unusable dependencies or settings.
	ErrInvalidConfig = errors.New("invalid orchestrator configuration")
)

// ValidationError reports a request that was rejected before any title was
// attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
