package task

import "errors"

var (
	// ErrTaskNotFound is returned when no task has the requested ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrQueueFull is returned by Submit when the in-memory queue has no room.
	ErrQueueFull = errors.New("task queue is full, try again later")

	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("task runner is stopped")

	// ErrUnknownTaskType is returned when a stored task has no registered factory.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrInvalidTask is returned for tasks that cannot be built from their input.
	ErrInvalidTask = errors.New("invalid task")
)
