package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/store"
)

// MockArtifactStore implements store.ArtifactStore for testing. Only the
// calls a test cares about need a function; the rest return the defaults.
type MockArtifactStore struct {
	SaveFn              func(ctx context.Context, a *domain.Artifact) error
	GetByIDFn           func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)
	ListFn              func(ctx context.Context) ([]*domain.Artifact, error)
	SearchFn            func(ctx context.Context, term string) ([]*domain.Artifact, error)
	CountByDifficultyFn func(ctx context.Context) (map[domain.Difficulty]int, error)
	DeleteFn            func(ctx context.Context, id uuid.UUID) error

	// Default response values
	Artifact  *domain.Artifact
	Artifacts []*domain.Artifact
	Counts    map[domain.Difficulty]int
	Err       error

	mu    sync.Mutex
	calls map[string]int
	saved []*domain.Artifact
}

var _ store.ArtifactStore = (*MockArtifactStore)(nil)

func (m *MockArtifactStore) track(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was called.
func (m *MockArtifactStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Saved returns every artifact passed to a successful Save, in call order.
func (m *MockArtifactStore) Saved() []*domain.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Artifact(nil), m.saved...)
}

// Save implements store.ArtifactWriter
func (m *MockArtifactStore) Save(ctx context.Context, a *domain.Artifact) error {
	m.track("Save")

	err := m.Err
	if m.SaveFn != nil {
		err = m.SaveFn(ctx, a)
	}
	if err == nil {
		m.mu.Lock()
		m.saved = append(m.saved, a)
		m.mu.Unlock()
	}
	return err
}

// GetByID implements store.ArtifactReader
func (m *MockArtifactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	m.track("GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return m.Artifact, m.Err
}

// List implements store.ArtifactReader
func (m *MockArtifactStore) List(ctx context.Context) ([]*domain.Artifact, error) {
	m.track("List")
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return m.Artifacts, m.Err
}

// Search implements store.ArtifactReader
func (m *MockArtifactStore) Search(ctx context.Context, term string) ([]*domain.Artifact, error) {
	m.track("Search")
	if m.SearchFn != nil {
		return m.SearchFn(ctx, term)
	}
	return m.Artifacts, m.Err
}

// CountByDifficulty implements store.ArtifactReader
func (m *MockArtifactStore) CountByDifficulty(ctx context.Context) (map[domain.Difficulty]int, error) {
	m.track("CountByDifficulty")
	if m.CountByDifficultyFn != nil {
		return m.CountByDifficultyFn(ctx)
	}
	return m.Counts, m.Err
}

// Delete implements store.ArtifactStore
func (m *MockArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.track("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return m.Err
}
