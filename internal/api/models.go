package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/cache"
	"github.com/phrazzld/codeforge-api/internal/domain"
)

// GenerateRequest defines the payload of the generation endpoints. Batch
// size limits and per-title checks belong to the generator; an empty title
// in the list fails only itself.
type GenerateRequest struct {
	Titles []string `json:"titles" validate:"required"`
}

// ProblemListResponse wraps a list of problems.
type ProblemListResponse struct {
	Problems []*domain.Artifact `json:"problems"`
	Count    int                `json:"count"`
}

// StatsResponse reports the number of problems per difficulty.
type StatsResponse struct {
	Total        int            `json:"total"`
	ByDifficulty map[string]int `json:"by_difficulty"`
}

// JobAcceptedResponse is returned when a generation job is queued.
type JobAcceptedResponse struct {
	// ID identifies the job for GET /api/generations/{id}
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// CacheStatsResponse reports the result cache contents.
type CacheStatsResponse struct {
	cache.Stats
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func newStatsResponse(counts map[domain.Difficulty]int) StatsResponse {
	resp := StatsResponse{ByDifficulty: make(map[string]int, len(counts))}
	for _, d := range domain.Difficulties() {
		resp.ByDifficulty[string(d)] = counts[d]
		resp.Total += counts[d]
	}
	return resp
}
