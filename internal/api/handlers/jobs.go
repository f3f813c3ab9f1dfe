package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/application/service"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// JobService is the part of the reconcile service the handler needs.
type JobService interface {
	StartJob(ctx context.Context, req service.JobRequest) (string, error)
	GetJob(jobID string) (service.Job, error)
	ListJobs(activeOnly bool) []service.Job
	CancelJob(jobID string) error
}

// JobsHandler handles reconcile job requests.
type JobsHandler struct {
	*Base
	jobs JobService
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs JobService) *JobsHandler {
	return &JobsHandler{Base: &Base{}, jobs: jobs}
}

// Start handles POST /api/reconcile - starts a background job.
func (h *JobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	mode := model.Mode(req.Mode)
	if !mode.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("mode must be one_to_one or ledger"))
		return
	}
	if req.Workers < 0 || req.Limit < 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("workers and limit must not be negative"))
		return
	}

	jobID, err := h.jobs.StartJob(r.Context(), service.JobRequest{
		Mode:       mode,
		DryRun:     req.DryRun,
		Limit:      req.Limit,
		Workers:    req.Workers,
		DocumentID: req.DocumentID,
		Verbose:    req.Verbose,
	})
	switch {
	case errors.Is(err, service.ErrModeBusy):
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	case errors.Is(err, reconcile.ErrInvalidWorkers):
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	case err != nil:
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartReconcileResponse{
		JobID:  jobID,
		Mode:   req.Mode,
		Status: string(service.StatusPending),
	})
}

// Get handles GET /api/reconcile/{jobID}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("job"))
		return
	}
	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// List handles GET /api/reconcile - all jobs, or only running ones with
// ?active=true.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.ListJobs(r.URL.Query().Get("active") == "true")

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}
	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/{jobID}.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.jobs.CancelJob(chi.URLParam(r, "jobID"))
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("job"))
		return
	case err != nil:
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "reconcile job cancelled"})
}

func toJobResponse(job service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Mode:      string(job.Request.Mode),
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.UTC().Format(time.RFC3339),
		Progress: dto.ProgressResponse{
			Phase:      job.Progress.Phase,
			Total:      job.Progress.Total,
			Completed:  job.Progress.Completed,
			Failed:     job.Progress.Failed,
			LastUpdate: job.Progress.LastUpdate.UTC().Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC().Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if s := job.Summary; s != nil {
		response.Summary = &dto.SummaryResponse{
			RunID:          s.RunID,
			Documents:      s.Documents,
			Scanned:        s.Scanned,
			Matched:        s.Matched,
			PerfectMatches: s.PerfectMatches,
			NoMatches:      s.NoMatches,
			Skipped:        s.Skipped,
			Failed:         s.Failed,
			GoodMatches:    s.GoodMatches,
			DurationMS:     s.Duration.Milliseconds(),
		}
	}

	if job.Error != nil {
		msg := job.Error.Error()
		response.Error = &msg
	}

	return response
}
