package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
)

// ArtifactWriter persists validated artifacts.
type ArtifactWriter interface {
	// Save inserts or replaces the artifact with a.ID. Titles are unique:
	// any other stored artifact with the same title is replaced, so the
	// last writer wins. The write is atomic; readers never observe a
	// partially written artifact.
	Save(ctx context.Context, a *domain.Artifact) error
}

// ArtifactReader reads stored artifacts.
type ArtifactReader interface {
	// GetByID returns ErrArtifactNotFound when no artifact has id.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)

	// List returns every artifact, newest first.
	List(ctx context.Context) ([]*domain.Artifact, error)

	// Search returns artifacts whose title or description contains term,
	// ignoring case, newest first.
	Search(ctx context.Context, term string) ([]*domain.Artifact, error)

	// CountByDifficulty returns the number of artifacts per difficulty.
	// Every difficulty is present in the result, possibly with zero.
	CountByDifficulty(ctx context.Context) (map[domain.Difficulty]int, error)
}

// ArtifactStore is the full persistence capability for artifacts.
type ArtifactStore interface {
	ArtifactWriter
	ArtifactReader

	// Delete removes the artifact with id, returning ErrArtifactNotFound
	// when there is none.
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmptyCounts returns a difficulty count map with every difficulty at zero.
func EmptyCounts() map[domain.Difficulty]int {
	counts := make(map[domain.Difficulty]int, len(domain.Difficulties()))
	for _, d := range domain.Difficulties() {
		counts[d] = 0
	}
	return counts
}
