package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/mocks"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/service"
	"github.com/phrazzld/codeforge-api/internal/store"
	"github.com/phrazzld/codeforge-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc service.ProblemService) http.Handler {
	h := NewProblemHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/api/problems/generate", h.GenerateProblems)
	r.Get("/api/problems", h.ListProblems)
	r.Get("/api/problems/search", h.SearchProblems)
	r.Get("/api/problems/stats", h.Stats)
	r.Get("/api/problems/{id}", h.GetProblem)
	r.Delete("/api/problems/{id}", h.DeleteProblem)
	r.Post("/api/generations", h.SubmitGeneration)
	r.Get("/api/generations/{id}", h.GetGeneration)
	return r
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func testArtifact(t *testing.T) *domain.Artifact {
	t.Helper()
	a, err := domain.NewArtifact(domain.ArtifactInput{
		Title:       "Check if a number is even or odd",
		Difficulty:  "Easy",
		Topics:      []string{"math"},
		Description: "Decide whether an integer is even or odd.",
		Example:     domain.Example{Input: "4", Output: "even", Explanation: "4 is divisible by 2"},
		Solution:    "return n%2 == 0",
		Steps:       []string{"Compute n mod 2."},
	})
	require.NoError(t, err)
	return a
}

func TestProblemHandler_GenerateProblems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ledger     orchestrator.Ledger
		err        error
		body       any
		wantStatus int
	}{
		{
			name:       "all titles succeed",
			ledger:     orchestrator.Ledger{Total: 2, Completed: 2, Errors: []string{}},
			body:       GenerateRequest{Titles: []string{"a", "b"}},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "some titles fail",
			ledger:     orchestrator.Ledger{Total: 2, Completed: 1, Failed: 1, Errors: []string{"<empty title>: Title cannot be empty"}},
			body:       GenerateRequest{Titles: []string{"a", ""}},
			wantStatus: http.StatusMultiStatus,
		},
		{
			name:       "every title fails",
			ledger:     orchestrator.Ledger{Total: 1, Failed: 1, Errors: []string{"a: generation failed"}},
			body:       GenerateRequest{Titles: []string{"a"}},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "batch rejected",
			err:        &orchestrator.ValidationError{Field: "titles", Message: "at most 20 titles are allowed, got 21"},
			body:       GenerateRequest{Titles: make([]string, 21)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing titles",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"titles": [`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &mocks.MockProblemService{
				GenerateFn: func(_ context.Context, titles []string) (orchestrator.Report, error) {
					if tc.err != nil {
						return orchestrator.Report{}, tc.err
					}
					return tc.ledger.Report(), nil
				},
			}

			w := do(t, newTestRouter(svc), http.MethodPost, "/api/problems/generate", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus >= http.StatusBadRequest && tc.wantStatus < http.StatusInternalServerError {
				var resp shared.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Error)
				return
			}

			var report orchestrator.Report
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
			assert.Equal(t, tc.ledger.Report(), report)
		})
	}
}

func TestProblemHandler_ValidationMessageIsReturned(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockProblemService{
		GenerateFn: func(context.Context, []string) (orchestrator.Report, error) {
			return orchestrator.Report{}, &orchestrator.ValidationError{Field: "titles", Message: "at least one title is required"}
		},
	}

	w := do(t, newTestRouter(svc), http.MethodPost, "/api/problems/generate", GenerateRequest{Titles: []string{}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "titles: at least one title is required", resp.Error)
}

func TestProblemHandler_GetProblem(t *testing.T) {
	t.Parallel()
	a := testArtifact(t)

	svc := &mocks.MockProblemService{
		GetProblemFn: func(_ context.Context, id uuid.UUID) (*domain.Artifact, error) {
			if id == a.ID {
				return a, nil
			}
			return nil, service.NewProblemServiceError("get_problem", "problem not found", store.ErrArtifactNotFound)
		},
	}
	router := newTestRouter(svc)

	t.Run("found", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/"+a.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got domain.Artifact
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, a.Title, got.Title)
		assert.Equal(t, a.Steps, got.Steps)
	})

	t.Run("not found", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/"+uuid.NewString(), nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Problem not found")
	})

	t.Run("invalid id", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProblemHandler_ListSearchStats(t *testing.T) {
	t.Parallel()
	a := testArtifact(t)

	var searched string
	svc := &mocks.MockProblemService{
		ListProblemsFn: func(context.Context) ([]*domain.Artifact, error) {
			return []*domain.Artifact{a}, nil
		},
		SearchProblemsFn: func(_ context.Context, term string) ([]*domain.Artifact, error) {
			searched = term
			if term == "" {
				return nil, service.ErrEmptyQuery
			}
			return []*domain.Artifact{a}, nil
		},
		StatsFn: func(context.Context) (map[domain.Difficulty]int, error) {
			return map[domain.Difficulty]int{domain.DifficultyEasy: 2, domain.DifficultyHard: 1}, nil
		},
	}
	router := newTestRouter(svc)

	t.Run("list", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ProblemListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("search", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/search?q=even", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "even", searched)
	})

	t.Run("search without term", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/search", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/problems/stats", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, StatsResponse{
			Total:        3,
			ByDifficulty: map[string]int{"Easy": 2, "Medium": 0, "Hard": 1},
		}, resp)
	})
}

func TestProblemHandler_DeleteProblem(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mocks.MockProblemService{
		DeleteProblemFn: func(_ context.Context, got uuid.UUID) error {
			if got == id {
				return nil
			}
			return store.ErrArtifactNotFound
		},
	}
	router := newTestRouter(svc)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/problems/"+id.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/problems/"+uuid.NewString(), nil).Code)
}

func TestProblemHandler_Generations(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	svc := &mocks.MockProblemService{
		SubmitGenerationFn: func(_ context.Context, titles []string) (uuid.UUID, error) {
			if len(titles) > 2 {
				return uuid.Nil, task.ErrQueueFull
			}
			return jobID, nil
		},
		GenerationStatusFn: func(_ context.Context, id uuid.UUID) (*service.GenerationJob, error) {
			if id != jobID {
				return nil, service.NewProblemServiceError("generation_status", "failed to load task", task.ErrTaskNotFound)
			}
			report := orchestrator.Ledger{Total: 1, Completed: 1, Errors: []string{}}.Report()
			return &service.GenerationJob{ID: id, Status: task.TaskStatusCompleted, Report: &report}, nil
		},
	}
	router := newTestRouter(svc)

	t.Run("accepted", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/generations", GenerateRequest{Titles: []string{"a"}})

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "/api/generations/"+jobID.String(), w.Header().Get("Location"))
		var resp JobAcceptedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, jobID, resp.ID)
	})

	t.Run("queue full", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/generations", GenerateRequest{Titles: []string{"a", "b", "c"}})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("status", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/generations/"+jobID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var job service.GenerationJob
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		assert.Equal(t, task.TaskStatusCompleted, job.Status)
		require.NotNil(t, job.Report)
		assert.Equal(t, orchestrator.StatusSuccess, job.Report.Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/generations/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProblemHandler_InternalErrorsAreNotLeaked(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockProblemService{
		ListProblemsFn: func(context.Context) ([]*domain.Artifact, error) {
			return nil, errors.New("dial tcp 10.0.0.5:5432: password=hunter22 rejected")
		},
	}

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/problems", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter22")
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestProblemHandler_GenerateOutlivesClient(t *testing.T) {
	t.Parallel()

	var batchErr error
	svc := &mocks.MockProblemService{
		GenerateFn: func(ctx context.Context, titles []string) (orchestrator.Report, error) {
			batchErr = ctx.Err()
			return orchestrator.Ledger{Total: len(titles), Completed: len(titles), Errors: []string{}}.Report(), nil
		},
	}
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/problems/generate",
		bytes.NewBufferString(`{"titles": ["a", "b"]}`)).WithContext(reqCtx)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, batchErr)
}

func TestProblemHandler_GenerateStopsOnShutdown(t *testing.T) {
	t.Parallel()

	shutdown, stop := context.WithCancel(context.Background())
	var batchErr error
	svc := &mocks.MockProblemService{
		GenerateFn: func(ctx context.Context, titles []string) (orchestrator.Report, error) {
			stop()
			<-ctx.Done()
			batchErr = ctx.Err()
			return orchestrator.Ledger{Total: len(titles), Failed: len(titles), Errors: []string{"a: not attempted"}}.Report(), nil
		},
	}
	h := NewProblemHandler(svc, nil, WithShutdownContext(shutdown))

	req := httptest.NewRequest(http.MethodPost, "/api/problems/generate", bytes.NewBufferString(`{"titles": ["a"]}`))
	w := httptest.NewRecorder()
	h.GenerateProblems(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.ErrorIs(t, batchErr, context.Canceled)
}
