package memstore

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/store"
)

const artifactEntity = "artifact"

// ArtifactStore implements store.ArtifactStore with a mutex-guarded map.
// Artifacts are copied on the way in and out, so callers never share
// memory with the store.
type ArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[uuid.UUID]*domain.Artifact
	logger    *slog.Logger
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates an empty ArtifactStore.
// If logger is nil, a default logger will be used.
func NewArtifactStore(logger *slog.Logger) *ArtifactStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactStore{
		artifacts: make(map[uuid.UUID]*domain.Artifact),
		logger:    logger.With(slog.String("component", "memory_artifact_store")),
	}
}

// Save upserts a by ID after removing any other artifact with the same title.
func (s *ArtifactStore) Save(ctx context.Context, a *domain.Artifact) error {
	if a == nil {
		return store.NewStoreError(artifactEntity, "save", "artifact is nil", store.ErrInvalidEntity)
	}
	if err := a.Validate(); err != nil {
		return store.NewStoreError(artifactEntity, "save", "validation failed",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.artifacts {
		if id != a.ID && existing.Title == a.Title {
			delete(s.artifacts, id)
		}
	}
	s.artifacts[a.ID] = a.Clone()

	logger.FromContextOrDefault(ctx, s.logger).Debug("artifact saved",
		slog.String("artifact_id", a.ID.String()))
	return nil
}

// GetByID returns store.ErrArtifactNotFound if the artifact does not exist.
func (s *ArtifactStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok {
		return nil, store.ErrArtifactNotFound
	}
	return a.Clone(), nil
}

// List returns every artifact, newest first.
func (s *ArtifactStore) List(_ context.Context) ([]*domain.Artifact, error) {
	return s.filter(func(*domain.Artifact) bool { return true }), nil
}

// Search returns artifacts whose title or description contains term,
// ignoring case, newest first.
func (s *ArtifactStore) Search(_ context.Context, term string) ([]*domain.Artifact, error) {
	needle := strings.ToLower(term)
	return s.filter(func(a *domain.Artifact) bool {
		return strings.Contains(strings.ToLower(a.Title), needle) ||
			strings.Contains(strings.ToLower(a.Description), needle)
	}), nil
}

func (s *ArtifactStore) filter(keep func(*domain.Artifact) bool) []*domain.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Artifact{}
	for _, a := range s.artifacts {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}

	slices.SortFunc(out, func(a, b *domain.Artifact) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// CountByDifficulty reports a count for every difficulty, including zeros.
func (s *ArtifactStore) CountByDifficulty(_ context.Context) (map[domain.Difficulty]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := store.EmptyCounts()
	for _, a := range s.artifacts {
		counts[a.Difficulty]++
	}
	return counts, nil
}

// Delete returns store.ErrArtifactNotFound if the artifact does not exist.
func (s *ArtifactStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[id]; !ok {
		return store.ErrArtifactNotFound
	}
	delete(s.artifacts, id)
	return nil
}
