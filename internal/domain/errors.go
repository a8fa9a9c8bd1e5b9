package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// Field-specific errors below are always wrapped with it.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDifficulty is returned when a difficulty is not one of Easy, Medium or Hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)
