package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
)

// Generator runs generation batches. It is satisfied by
// *orchestrator.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, titles []string) (orchestrator.Ledger, error)
	ValidateBatch(titles []string) error
}

// JobRunner queues background tasks and reports their state. It is
// satisfied by *task.TaskRunner.
type JobRunner interface {
	Submit(ctx context.Context, t task.Task) error
	Get(ctx context.Context, id uuid.UUID) (*task.Record, error)
}

// GenerationJob is the state of a background generation batch. Report is
// set once the job has completed.
type GenerationJob struct {
	ID        uuid.UUID            `json:"id"`
	Status    task.TaskStatus      `json:"status"`
	Titles    []string             `json:"titles"`
	Report    *orchestrator.Report `json:"report,omitempty"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ProblemService provides the problem operations exposed by the API
type ProblemService interface {
	// Generate runs a batch synchronously and returns its report. Only batch
	// validation failures are returned as errors.
	Generate(ctx context.Context, titles []string) (orchestrator.Report, error)

	// SubmitGeneration validates a batch and queues it as a background job
	SubmitGeneration(ctx context.Context, titles []string) (uuid.UUID, error)

	// GenerationStatus returns the state of a background job
	GenerationStatus(ctx context.Context, id uuid.UUID) (*GenerationJob, error)

	// GetProblem retrieves a problem by its ID
	GetProblem(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)

	// ListProblems returns every problem, newest first
	ListProblems(ctx context.Context) ([]*domain.Artifact, error)

	// SearchProblems returns problems whose title or description contains term
	SearchProblems(ctx context.Context, term string) ([]*domain.Artifact, error)

	// Stats returns the number of problems per difficulty
	Stats(ctx context.Context) (map[domain.Difficulty]int, error)

	// DeleteProblem removes a problem
	DeleteProblem(ctx context.Context, id uuid.UUID) error
}

// ProblemServiceOption configures the problem service.
type ProblemServiceOption func(*problemServiceImpl)

// WithJobs enables background generation through runner. Tasks are created
// by factory.
func WithJobs(runner JobRunner, factory *task.GenerationTaskFactory) ProblemServiceOption {
	return func(s *problemServiceImpl) {
		s.jobs = runner
		s.tasks = factory
	}
}

// problemServiceImpl implements the ProblemService interface
type problemServiceImpl struct {
	generator Generator
	artifacts store.ArtifactStore
	jobs      JobRunner
	tasks     *task.GenerationTaskFactory
	logger    *slog.Logger
}

// NewProblemService creates a new ProblemService.
// It returns an error if any of the required dependencies are nil.
func NewProblemService(
	generator Generator,
	artifacts store.ArtifactStore,
	logger *slog.Logger,
	opts ...ProblemServiceOption,
) (ProblemService, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", domain.ErrValidation)
	}
	if artifacts == nil {
		return nil, fmt.Errorf("%w: artifact store cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &problemServiceImpl{
		generator: generator,
		artifacts: artifacts,
		logger:    logger.With(slog.String("component", "problem_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *problemServiceImpl) Generate(ctx context.Context, titles []string) (orchestrator.Report, error) {
	ledger, err := s.generator.Generate(ctx, titles)
	if err != nil {
		return orchestrator.Report{}, err
	}
	return ledger.Report(), nil
}

func (s *problemServiceImpl) SubmitGeneration(ctx context.Context, titles []string) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.jobs == nil || s.tasks == nil {
		return uuid.Nil, ErrJobsDisabled
	}
	if err := s.generator.ValidateBatch(titles); err != nil {
		return uuid.Nil, err
	}

	t, err := s.tasks.CreateTask(titles)
	if err != nil {
		return uuid.Nil, NewProblemServiceError("submit_generation", "failed to create task", err)
	}

	if err := s.jobs.Submit(ctx, t); err != nil {
		log.Error("failed to submit generation task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()))
		return uuid.Nil, NewProblemServiceError("submit_generation", "failed to queue task", err)
	}

	log.Info("generation task queued",
		slog.String("task_id", t.ID().String()),
		slog.Int("title_count", len(titles)))
	return t.ID(), nil
}

func (s *problemServiceImpl) GenerationStatus(ctx context.Context, id uuid.UUID) (*GenerationJob, error) {
	if s.jobs == nil {
		return nil, ErrJobsDisabled
	}

	rec, err := s.jobs.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, task.ErrTaskNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load generation task",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, NewProblemServiceError("generation_status", "failed to load task", err)
	}
	if rec.Type != task.TaskTypeGeneration {
		return nil, NewProblemServiceError("generation_status", "not a generation task", task.ErrTaskNotFound)
	}

	job := &GenerationJob{
		ID:        rec.ID,
		Status:    rec.Status,
		Error:     rec.ErrorMessage,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	var payload struct {
		Titles []string `json:"titles"`
	}
	if err := json.Unmarshal(rec.Payload, &payload); err == nil {
		job.Titles = payload.Titles
	}

	if rec.Status == task.TaskStatusCompleted && len(rec.Result) > 0 {
		var report orchestrator.Report
		if err := json.Unmarshal(rec.Result, &report); err != nil {
			return nil, NewProblemServiceError("generation_status", "undecodable task result", err)
		}
		job.Report = &report
	}
	return job, nil
}

func (s *problemServiceImpl) GetProblem(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving problem", slog.String("problem_id", id.String()))

	a, err := s.artifacts.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewProblemServiceError("get_problem", "problem not found", store.ErrArtifactNotFound)
		}
		log.Error("failed to retrieve problem",
			slog.String("error", err.Error()),
			slog.String("problem_id", id.String()))
		return nil, NewProblemServiceError("get_problem", "failed to retrieve problem", err)
	}
	return a, nil
}

func (s *problemServiceImpl) ListProblems(ctx context.Context) ([]*domain.Artifact, error) {
	artifacts, err := s.artifacts.List(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list problems",
			slog.String("error", err.Error()))
		return nil, NewProblemServiceError("list_problems", "failed to list problems", err)
	}
	return artifacts, nil
}

func (s *problemServiceImpl) SearchProblems(ctx context.Context, term string) ([]*domain.Artifact, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}

	artifacts, err := s.artifacts.Search(ctx, term)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to search problems",
			slog.String("error", err.Error()))
		return nil, NewProblemServiceError("search_problems", "failed to search problems", err)
	}
	return artifacts, nil
}

func (s *problemServiceImpl) Stats(ctx context.Context) (map[domain.Difficulty]int, error) {
	counts, err := s.artifacts.CountByDifficulty(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count problems",
			slog.String("error", err.Error()))
		return nil, NewProblemServiceError("stats", "failed to count problems", err)
	}
	return counts, nil
}

func (s *problemServiceImpl) DeleteProblem(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.artifacts.Delete(ctx, id); err != nil {
		if store.IsNotFoundError(err) {
			return NewProblemServiceError("delete_problem", "problem not found", store.ErrArtifactNotFound)
		}
		log.Error("failed to delete problem",
			slog.String("error", err.Error()),
			slog.String("problem_id", id.String()))
		return NewProblemServiceError("delete_problem", "failed to delete problem", err)
	}

	log.Info("problem deleted", slog.String("problem_id", id.String()))
	return nil
}
