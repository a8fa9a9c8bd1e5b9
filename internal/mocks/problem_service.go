package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/service"
)

// MockProblemService implements service.ProblemService for handler tests.
// Methods without a function return zero values.
type MockProblemService struct {
	GenerateFn         func(ctx context.Context, titles []string) (orchestrator.Report, error)
	SubmitGenerationFn func(ctx context.Context, titles []string) (uuid.UUID, error)
	GenerationStatusFn func(ctx context.Context, id uuid.UUID) (*service.GenerationJob, error)
	GetProblemFn       func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)
	ListProblemsFn     func(ctx context.Context) ([]*domain.Artifact, error)
	SearchProblemsFn   func(ctx context.Context, term string) ([]*domain.Artifact, error)
	StatsFn            func(ctx context.Context) (map[domain.Difficulty]int, error)
	DeleteProblemFn    func(ctx context.Context, id uuid.UUID) error
}

var _ service.ProblemService = (*MockProblemService)(nil)

// Generate implements service.ProblemService
func (m *MockProblemService) Generate(ctx context.Context, titles []string) (orchestrator.Report, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, titles)
	}
	return orchestrator.Report{}, nil
}

// SubmitGeneration implements service.ProblemService
func (m *MockProblemService) SubmitGeneration(ctx context.Context, titles []string) (uuid.UUID, error) {
	if m.SubmitGenerationFn != nil {
		return m.SubmitGenerationFn(ctx, titles)
	}
	return uuid.Nil, nil
}

// GenerationStatus implements service.ProblemService
func (m *MockProblemService) GenerationStatus(ctx context.Context, id uuid.UUID) (*service.GenerationJob, error) {
	if m.GenerationStatusFn != nil {
		return m.GenerationStatusFn(ctx, id)
	}
	return nil, nil
}

// GetProblem implements service.ProblemService
func (m *MockProblemService) GetProblem(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	if m.GetProblemFn != nil {
		return m.GetProblemFn(ctx, id)
	}
	return nil, nil
}

// ListProblems implements service.ProblemService
func (m *MockProblemService) ListProblems(ctx context.Context) ([]*domain.Artifact, error) {
	if m.ListProblemsFn != nil {
		return m.ListProblemsFn(ctx)
	}
	return nil, nil
}

// SearchProblems implements service.ProblemService
func (m *MockProblemService) SearchProblems(ctx context.Context, term string) ([]*domain.Artifact, error) {
	if m.SearchProblemsFn != nil {
		return m.SearchProblemsFn(ctx, term)
	}
	return nil, nil
}

// Stats implements service.ProblemService
func (m *MockProblemService) Stats(ctx context.Context) (map[domain.Difficulty]int, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return nil, nil
}

// DeleteProblem implements service.ProblemService
func (m *MockProblemService) DeleteProblem(ctx context.Context, id uuid.UUID) error {
	if m.DeleteProblemFn != nil {
		return m.DeleteProblemFn(ctx, id)
	}
	return nil
}
