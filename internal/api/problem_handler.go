package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/orchestrator"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/service"
)

// ProblemHandler handles problem and generation HTTP requests
type ProblemHandler struct {
	problems service.ProblemService
	logger   *slog.Logger
	shutdown context.Context
}

// ProblemHandlerOption configures a ProblemHandler.
type ProblemHandlerOption func(*ProblemHandler)

// WithShutdownContext stops synchronous batches at their next delay point
// once ctx is done. Without it a batch always runs to completion.
func WithShutdownContext(ctx context.Context) ProblemHandlerOption {
	return func(h *ProblemHandler) { h.shutdown = ctx }
}

// NewProblemHandler creates a new ProblemHandler.
// If logger is nil, a default logger will be used.
func NewProblemHandler(problems service.ProblemService, logger *slog.Logger, opts ...ProblemHandlerOption) *ProblemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ProblemHandler{
		problems: problems,
		logger:   logger.With(slog.String("component", "problem_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// batchContext detaches a synchronous batch from its request: a client
// that disconnects does not stop the titles still waiting. Only the
// shutdown context, when set, can cancel it.
func (h *ProblemHandler) batchContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	if h.shutdown == nil {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.shutdown, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// reportStatusCode maps a generation outcome to its response status.
func reportStatusCode(status orchestrator.Status) int {
	switch status {
	case orchestrator.StatusSuccess:
		return http.StatusCreated
	case orchestrator.StatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusBadGateway
	}
}

// decodeGenerateRequest reads and validates a GenerateRequest, writing the
// error response itself when the request is unusable.
func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (GenerateRequest, bool) {
	var req GenerateRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return req, false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "titles is required", err)
		return req, false
	}
	return req, true
}

// GenerateProblems handles POST /api/problems/generate. It blocks until the
// whole batch has been processed, even if the client goes away, and answers 201 when every title
// succeeded, 207 when some did and 502 when none did.
func (h *ProblemHandler) GenerateProblems(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.batchContext(r)
	defer cancel()

	report, err := h.problems.Generate(ctx, req.Titles)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("generation request finished",
		slog.String("status", string(report.Status)),
		slog.Int("total", report.Total),
		slog.Int("failed", report.Failed))

	shared.RespondWithJSON(w, r, reportStatusCode(report.Status), report)
}

// ListProblems handles GET /api/problems
func (h *ProblemHandler) ListProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problems.ListProblems(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list problems")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProblemListResponse{Problems: problems, Count: len(problems)})
}

// SearchProblems handles GET /api/problems/search?q=term
func (h *ProblemHandler) SearchProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problems.SearchProblems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProblemListResponse{Problems: problems, Count: len(problems)})
}

// GetProblem handles GET /api/problems/{id}
func (h *ProblemHandler) GetProblem(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	problem, err := h.problems.GetProblem(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, problem)
}

// DeleteProblem handles DELETE /api/problems/{id}
func (h *ProblemHandler) DeleteProblem(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.problems.DeleteProblem(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/problems/stats
func (h *ProblemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.problems.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newStatsResponse(counts))
}

// SubmitGeneration handles POST /api/generations. The batch is validated
// up front and processed in the background; the response carries the job
// ID to poll.
func (h *ProblemHandler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGenerateRequest(w, r)
	if !ok {
		return
	}

	id, err := h.problems.SubmitGeneration(r.Context(), req.Titles)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Location", "/api/generations/"+id.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{ID: id, Status: "pending"})
}

// GetGeneration handles GET /api/generations/{id}
func (h *ProblemHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.problems.GenerationStatus(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}
