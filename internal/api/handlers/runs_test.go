package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/api/handlers"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

func TestRunsHandler_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns empty list when no runs", func(t *testing.T) {
		handler := handlers.NewRunsHandler(storage.NewMockRepository())

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Empty(t, response.Runs)
		assert.Equal(t, 0, response.Count)
	})

	t.Run("returns runs newest first", func(t *testing.T) {
		repo := storage.NewMockRepository()

		first, _ := repo.StartRun(ctx, model.ModeLedger, false)
		_ = repo.CompleteRun(ctx, first, storage.RunTotals{Documents: 10, Matched: 6, Perfect: 2, NoMatch: 2, GoodMatches: 8})

		second, _ := repo.StartRun(ctx, model.ModeOneToOne, true)
		_ = repo.CompleteRun(ctx, second, storage.RunTotals{Documents: 5, Failed: 1})

		handler := handlers.NewRunsHandler(repo)

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 2, response.Count)
		assert.Equal(t, second, response.Runs[0].ID)
		assert.Equal(t, storage.RunStatusCompletedWithErrors, response.Runs[0].Status)
		assert.True(t, response.Runs[0].DryRun)
		assert.Equal(t, 2, response.Runs[1].PerfectMatches)
		assert.Equal(t, 8, response.Runs[1].GoodMatches)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMockRepository()
		for i := 0; i < 5; i++ {
			id, _ := repo.StartRun(ctx, model.ModeLedger, false)
			_ = repo.CompleteRun(ctx, id, storage.RunTotals{})
		}
		handler := handlers.NewRunsHandler(repo)

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=3", nil))

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 3, response.Count)
	})

	t.Run("returns 500 on store failure", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.ReadErr = assert.AnError

		rec := httptest.NewRecorder()
		handlers.NewRunsHandler(repo).List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRunsHandler_Get(t *testing.T) {
	repo := storage.NewMockRepository()
	runID, err := repo.StartRun(context.Background(), model.ModeLedger, false)
	require.NoError(t, err)
	handler := handlers.NewRunsHandler(repo)

	t.Run("returns run", func(t *testing.T) {
		req := withParams(httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil), map[string]string{"id": runID})
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, runID, response.ID)
		assert.Equal(t, "ledger", response.Mode)
		assert.Equal(t, storage.RunStatusRunning, response.Status)
	})

	t.Run("returns 404 for unknown run", func(t *testing.T) {
		req := withParams(httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil), map[string]string{"id": "missing"})
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns 400 without an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/api/runs/", nil), nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
