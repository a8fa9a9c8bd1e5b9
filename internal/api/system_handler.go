package api

import (
	"net/http"

	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/cache"
)

// CacheStatser reports cache statistics. It is satisfied by
// *cache.ResultCache.
type CacheStatser interface {
	Stats() cache.Stats
}

// SystemHandler serves operational endpoints.
type SystemHandler struct {
	cache CacheStatser
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(c CacheStatser) *SystemHandler {
	return &SystemHandler{cache: c}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// CacheStats handles GET /api/cache/stats
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, CacheStatsResponse{Stats: h.cache.Stats()})
}
