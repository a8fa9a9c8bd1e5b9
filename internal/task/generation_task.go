package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
)

// TaskTypeGeneration is the type of tasks that generate a batch of problems.
const TaskTypeGeneration = "problem_generation"

// BatchGenerator runs one generation batch. It is satisfied by
// *orchestrator.Orchestrator.
type BatchGenerator interface {
	Generate(ctx context.Context, titles []string) (orchestrator.Ledger, error)
}

// generationPayload represents the serialized data stored with the task
type generationPayload struct {
	Titles []string `json:"titles"`
}

// GenerationTask generates and stores problems for a list of titles. Its
// result is the JSON encoding of the batch's orchestrator.Report.
type GenerationTask struct {
	id        uuid.UUID
	titles    []string
	payload   []byte
	status    TaskStatus
	generator BatchGenerator
	logger    *slog.Logger
}

var _ Task = (*GenerationTask)(nil)

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns TaskTypeGeneration
func (t *GenerationTask) Type() string {
	return TaskTypeGeneration
}

// Payload returns the JSON-encoded titles
func (t *GenerationTask) Payload() []byte {
	return t.payload
}

// Status returns the status the task was created or loaded with
func (t *GenerationTask) Status() TaskStatus {
	return t.status
}

// Titles returns the titles the task generates.
func (t *GenerationTask) Titles() []string {
	return append([]string(nil), t.titles...)
}

// Execute runs the batch. A rejected batch fails the task; per-title
// failures are part of the successful result.
func (t *GenerationTask) Execute(ctx context.Context) ([]byte, error) {
	t.logger.Info("starting generation task", "title_count", len(t.titles))

	ledger, err := t.generator.Generate(ctx, t.titles)
	if err != nil {
		return nil, fmt.Errorf("generation batch rejected: %w", err)
	}

	result, err := json.Marshal(ledger.Report())
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation result: %w", err)
	}

	t.logger.Info("generation task finished",
		"status", ledger.Status(),
		"completed", ledger.Completed,
		"failed", ledger.Failed)
	return result, nil
}

// GenerationTaskFactory creates generation tasks bound to a generator.
type GenerationTaskFactory struct {
	generator BatchGenerator
	logger    *slog.Logger
}

// NewGenerationTaskFactory creates a new GenerationTaskFactory
func NewGenerationTaskFactory(generator BatchGenerator, logger *slog.Logger) (*GenerationTaskFactory, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidTask)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationTaskFactory{generator: generator, logger: logger}, nil
}

// CreateTask creates a pending task for titles.
func (f *GenerationTaskFactory) CreateTask(titles []string) (*GenerationTask, error) {
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: at least one title is required", ErrInvalidTask)
	}

	payload, err := json.Marshal(generationPayload{Titles: titles})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}

	return f.build(uuid.New(), titles, payload, TaskStatusPending), nil
}

// FromRecord rebuilds a stored generation task. It is the Factory
// registered for TaskTypeGeneration.
func (f *GenerationTaskFactory) FromRecord(rec Record) (Task, error) {
	if rec.Type != TaskTypeGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}

	var payload generationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: undecodable payload: %v", ErrInvalidTask, err)
	}
	if len(payload.Titles) == 0 {
		return nil, fmt.Errorf("%w: payload has no titles", ErrInvalidTask)
	}

	return f.build(rec.ID, payload.Titles, rec.Payload, rec.Status), nil
}

func (f *GenerationTaskFactory) build(id uuid.UUID, titles []string, payload []byte, status TaskStatus) *GenerationTask {
	return &GenerationTask{
		id:        id,
		titles:    append([]string(nil), titles...),
		payload:   payload,
		status:    status,
		generator: f.generator,
		logger:    f.logger.With("task_id", id, "task_type", TaskTypeGeneration),
	}
}
