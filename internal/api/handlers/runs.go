package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// RunsHandler handles reconcile run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{Base: NewBase(repo)}
}

// List handles GET /api/runs - recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}

func toRunResponse(run storage.Run) dto.RunResponse {
	return dto.RunResponse{
		ID:             run.ID,
		Mode:           run.Mode,
		DryRun:         run.DryRun,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
		Documents:      run.Documents,
		Scanned:        run.Scanned,
		Matched:        run.Matched,
		PerfectMatches: run.Perfect,
		NoMatches:      run.NoMatch,
		Skipped:        run.Skipped,
		Failed:         run.Failed,
		GoodMatches:    run.GoodMatches,
		Status:         run.Status,
	}
}
