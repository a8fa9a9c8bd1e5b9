package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.Equal(t, "search term cannot be empty", ErrEmptyQuery.Error())
	assert.Equal(t, "background generation is not available", ErrJobsDisabled.Error())
	assert.False(t, errors.Is(ErrEmptyQuery, ErrJobsDisabled))
}

func TestProblemServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProblemServiceError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      NewProblemServiceError("get_problem", "problem not found", store.ErrArtifactNotFound),
			expected: "problem service get_problem failed: problem not found: entity not found: artifact",
		},
		{
			name:     "without underlying error",
			err:      NewProblemServiceError("stats", "no counts", nil),
			expected: "problem service stats failed: no counts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	t.Run("unwraps to sentinel", func(t *testing.T) {
		err := NewProblemServiceError("delete_problem", "problem not found", store.ErrArtifactNotFound)
		assert.ErrorIs(t, err, store.ErrArtifactNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
