package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when the service call fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate content")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrEmptyResponse is returned when the model answers with no text at all
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// ServiceError is returned by Generator implementations when the generation
// service is unavailable, refuses the request or answers with nothing usable.
type ServiceError struct {
	// Op names the failing call, e.g. "generate_content".
	Op  string
	Err error
}

// NewServiceError wraps err as a ServiceError for op.
func NewServiceError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation service %s failed", e.Op)
	}
	return fmt.Sprintf("generation service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ParseError reports a model response that cannot be turned into an
// artifact. It matches ErrInvalidResponse with errors.Is.
type ParseError struct {
	Reason string
	Err    error
}

func newParseError(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidResponse) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// Parse failure reasons.
const (
	ReasonNoPayload   = "no structured payload found"
	ReasonUndecodable = "undecodable payload"
	ReasonIncomplete  = "incomplete payload"
)
