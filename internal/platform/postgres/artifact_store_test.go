package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/platform/postgres"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newArtifact(t *testing.T, title, difficulty string) *domain.Artifact {
	t.Helper()
	a, err := domain.NewArtifact(domain.ArtifactInput{
		Title:       title,
		Difficulty:  difficulty,
		Topics:      []string{"arrays", "two pointers", "sorting"},
		Description: "A problem statement for " + title + ".",
		Example:     domain.Example{Input: "[1,2,3]", Output: "6", Explanation: "1+2+3"},
		Solution:    "sum := 0; for _, x := range xs { sum += x }",
		Steps:       []string{"Initialise the sum.", "Add every element.", "Return the sum."},
		Pseudocode:  []string{"sum <- 0", "for x in xs: sum <- sum + x"},
	})
	require.NoError(t, err)
	return a
}

// The store tests share one database and run sequentially.
func TestPostgresArtifactStore_Integration(t *testing.T) {
	db := testdb.Open(t)
	s := postgres.NewPostgresArtifactStore(db, nil)
	ctx := context.Background()

	t.Run("round trip preserves every field", func(t *testing.T) {
		a := newArtifact(t, "Sum an array", "Easy")
		require.NoError(t, s.Save(ctx, a))

		got, err := s.GetByID(ctx, a.ID)
		require.NoError(t, err)

		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, a.Title, got.Title)
		assert.Equal(t, a.Difficulty, got.Difficulty)
		assert.Equal(t, a.Topics, got.Topics)
		assert.Equal(t, a.Description, got.Description)
		assert.Equal(t, a.Example, got.Example)
		assert.Equal(t, a.Solution, got.Solution)
		assert.Equal(t, a.Steps, got.Steps)
		assert.Equal(t, a.Pseudocode, got.Pseudocode)
		assert.WithinDuration(t, a.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("same title is last writer wins", func(t *testing.T) {
		first := newArtifact(t, "Reverse a list", "Easy")
		second := newArtifact(t, "Reverse a list", "Hard")
		require.NoError(t, s.Save(ctx, first))
		require.NoError(t, s.Save(ctx, second))

		_, err := s.GetByID(ctx, first.ID)
		assert.ErrorIs(t, err, store.ErrArtifactNotFound)

		got, err := s.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DifficultyHard, got.Difficulty)
	})

	t.Run("concurrent saves of one title leave one row", func(t *testing.T) {
		const writers = 4
		artifacts := make([]*domain.Artifact, writers)
		for i := range artifacts {
			artifacts[i] = newArtifact(t, "Race condition", "Medium")
		}

		var g errgroup.Group
		for _, a := range artifacts {
			g.Go(func() error { return s.Save(ctx, a) })
		}
		require.NoError(t, g.Wait())

		found, err := s.Search(ctx, "Race condition")
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.NoError(t, s.Delete(ctx, found[0].ID))
	})

	t.Run("list, search and counts", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, newArtifact(t, "Binary search", "Medium")))

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Binary search", all[0].Title)

		found, err := s.Search(ctx, "BINARY")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Binary search", found[0].Title)

		counts, err := s.CountByDifficulty(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[domain.DifficultyEasy])
		assert.Equal(t, 1, counts[domain.DifficultyMedium])
		assert.Equal(t, 1, counts[domain.DifficultyHard])
	})

	t.Run("delete", func(t *testing.T) {
		a := newArtifact(t, "Delete me", "Easy")
		require.NoError(t, s.Save(ctx, a))
		require.NoError(t, s.Delete(ctx, a.ID))
		assert.ErrorIs(t, s.Delete(ctx, a.ID), store.ErrArtifactNotFound)
	})
}
