package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/api/handlers"
	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/application/service"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

type fakeJobs struct {
	started  []service.JobRequest
	startErr error
	jobs     map[string]service.Job
	cancel   error
}

func (f *fakeJobs) StartJob(_ context.Context, req service.JobRequest) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, req)
	return fmt.Sprintf("job-%d", len(f.started)), nil
}

func (f *fakeJobs) GetJob(jobID string) (service.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return service.Job{}, service.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobs) ListJobs(activeOnly bool) []service.Job {
	var out []service.Job
	for _, job := range f.jobs {
		if activeOnly && job.Status != service.StatusRunning {
			continue
		}
		out = append(out, job)
	}
	return out
}

func (f *fakeJobs) CancelJob(jobID string) error {
	if _, ok := f.jobs[jobID]; !ok {
		return service.ErrJobNotFound
	}
	return f.cancel
}

func postReconcile(handler *handlers.JobsHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Start(rec, req)
	return rec
}

func TestJobsHandler_Start(t *testing.T) {
	t.Run("accepts a valid request", func(t *testing.T) {
		jobs := &fakeJobs{}
		handler := handlers.NewJobsHandler(jobs)

		rec := postReconcile(handler, `{"mode":"ledger","dry_run":true,"workers":4,"document_id":"doc-9"}`)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var response dto.StartReconcileResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "job-1", response.JobID)
		assert.Equal(t, "pending", response.Status)

		require.Len(t, jobs.started, 1)
		assert.Equal(t, service.JobRequest{Mode: model.ModeLedger, DryRun: true, Workers: 4, DocumentID: "doc-9"}, jobs.started[0])
	})

	tests := []struct {
		name       string
		body       string
		startErr   error
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"mode":`, nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"missing mode", `{}`, nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"negative workers", `{"mode":"ledger","workers":-1}`, nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"mode busy", `{"mode":"ledger"}`, fmt.Errorf("%w: ledger", service.ErrModeBusy), http.StatusConflict, dto.ErrCodeConflict},
		{"bad pool size", `{"mode":"ledger"}`, fmt.Errorf("%w: 0", reconcile.ErrInvalidWorkers), http.StatusBadRequest, dto.ErrCodeValidation},
		{"unexpected failure", `{"mode":"ledger"}`, errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewJobsHandler(&fakeJobs{startErr: tt.startErr})

			rec := postReconcile(handler, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var apiErr dto.APIError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestJobsHandler_Get(t *testing.T) {
	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	jobs := &fakeJobs{jobs: map[string]service.Job{
		"job-1": {
			ID:          "job-1",
			Status:      service.StatusCompleted,
			Request:     service.JobRequest{Mode: model.ModeLedger},
			StartedAt:   started,
			CompletedAt: &completed,
			Progress:    service.JobProgress{Phase: "completed", Total: 3, Completed: 3, LastUpdate: completed},
			Summary: &reconcile.Summary{
				RunID:          "run-1",
				Documents:      3,
				PerfectMatches: 1,
				GoodMatches:    []model.GoodMatch{{DocumentID: "doc-1", MaxScore: 100}},
				Duration:       1500 * time.Millisecond,
			},
		},
		"job-2": {
			ID:        "job-2",
			Status:    service.StatusFailed,
			Request:   service.JobRequest{Mode: model.ModeOneToOne},
			StartedAt: started,
			Error:     errors.New("failed to fetch documents"),
		},
	}}
	handler := handlers.NewJobsHandler(jobs)

	t.Run("completed job carries its summary", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"jobID": "job-1"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.JobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "ledger", response.Mode)
		require.NotNil(t, response.CompletedAt)
		assert.Equal(t, "2024-03-15T09:01:30Z", *response.CompletedAt)
		require.NotNil(t, response.Summary)
		assert.Equal(t, int64(1500), response.Summary.DurationMS)
		assert.Len(t, response.Summary.GoodMatches, 1)
		assert.Nil(t, response.Error)
	})

	t.Run("failed job carries its error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"jobID": "job-2"}))

		var response dto.JobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "failed to fetch documents", *response.Error)
		assert.Nil(t, response.Summary)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"jobID": "job-9"}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestJobsHandler_ListAndCancel(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]service.Job{
		"a": {ID: "a", Status: service.StatusRunning},
		"b": {ID: "b", Status: service.StatusCompleted},
	}}
	handler := handlers.NewJobsHandler(jobs)

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/reconcile?active=true", nil))
	var list dto.JobListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	rec = httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/reconcile", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 2, list.Count)

	rec = httptest.NewRecorder()
	handler.Cancel(rec, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"jobID": "a"}))
	assert.Equal(t, http.StatusOK, rec.Code)

	jobs.cancel = service.ErrJobFinished
	rec = httptest.NewRecorder()
	handler.Cancel(rec, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"jobID": "b"}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	handler.Cancel(rec, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"jobID": "zzz"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
