package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// ResultsHandler handles match result requests.
type ResultsHandler struct {
	*Base
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(repo storage.Repository) *ResultsHandler {
	return &ResultsHandler{Base: NewBase(repo)}
}

// List handles GET /api/results - paginated results with optional mode,
// status and min_score filters.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	mode := query.Get("mode")
	if mode != "" && !model.Mode(mode).Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("unknown mode: "+mode))
		return
	}

	filters := storage.ResultFilters{
		Mode:     mode,
		Status:   query.Get("status"),
		MinScore: ParseFloatParam(r, "min_score", 0),
		Limit:    ParseIntParam(r, "limit", 50),
		Offset:   ParseIntParam(r, "offset", 0),
	}
	if filters.Limit > 500 {
		filters.Limit = 500
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	list, err := h.repo.ListResults(r.Context(), filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ResultListResponse{
		Results:    make([]dto.ResultResponse, 0, len(list.Results)),
		TotalCount: list.TotalCount,
		Limit:      list.Limit,
		Offset:     list.Offset,
	}
	for _, result := range list.Results {
		response.Results = append(response.Results, dto.NewResultResponse(result))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// GetByDocument handles GET /api/results/{documentID} - every mode's result
// for one document.
func (h *ResultsHandler) GetByDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("document ID is required"))
		return
	}

	results, err := h.repo.GetResults(r.Context(), documentID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if len(results) == 0 {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("result"))
		return
	}

	response := dto.DocumentResultsResponse{
		DocumentID: documentID,
		Results:    make([]dto.ResultResponse, 0, len(results)),
	}
	for _, result := range results {
		response.Results = append(response.Results, dto.NewResultResponse(result))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/results/{documentID}/{mode}.
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	mode := model.Mode(chi.URLParam(r, "mode"))
	if !mode.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("unknown mode: "+string(mode)))
		return
	}

	result, err := h.repo.GetResult(r.Context(), documentID, mode)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("result"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewResultResponse(*result))
}
