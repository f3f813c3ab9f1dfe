package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/gst-reconcile/internal/api"
	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/application/service"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// These tests run the full stack against a real SQLite database:
// HTTP request → Router → Handlers → Service → Orchestrator → Storage

const buyerGSTIN = "27ABCDE1234F1Z5"

func createTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorageWithLogger(filepath.Join(t.TempDir(), "api_integration.db"), quietLogger())
	require.NoError(t, err)

	cfg := &config.Config{
		Reconcile:     config.ReconcileConfig{Workers: 4, BatchLimit: 100},
		Observability: config.ObservabilityConfig{Logging: config.LoggingConfig{Level: "error"}},
	}
	jobs := service.NewReconcileService(cfg, reconcile.DepsFromRepository(store), quietLogger())

	ts := httptest.NewServer(api.NewServer(api.DefaultConfig(), store, jobs, quietLogger()).Router())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return ts, store
}

func seedStore(t *testing.T, store *storage.Storage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, model.BookingDocument{
		ID:          "doc-1",
		BookingType: "HOTEL",
		Bookings: []model.BookingEvent{{
			ClaimableAmount: "120", CreatedDate: "15/03/2024", VendorInvoiceNo: "H-001", CustomerGSTIN: buyerGSTIN,
		}},
		ParsedInvoices: []model.InvoiceEvent{{
			InvoiceNo: "H-001", InvoiceDate: "15/03/2024",
			Parsed: &model.ParsedInvoice{InvoiceAmount: "1,000.00", TotalTaxAmount: "120", GuestGSTIN: buyerGSTIN},
		}},
	}))
	require.NoError(t, store.SaveDocument(ctx, model.BookingDocument{
		ID:          "doc-2",
		BookingType: "HOTEL",
		Bookings: []model.BookingEvent{{
			ClaimableAmount: "540", CreatedDate: "01/02/2024", VendorInvoiceNo: "Z-77", CustomerGSTIN: buyerGSTIN,
		}},
		ParsedInvoices: []model.InvoiceEvent{{
			InvoiceNo: "Z-77", InvoiceDate: "01/02/2024",
			Parsed: &model.ParsedInvoice{InvoiceAmount: "4500", TotalTaxAmount: "540", GuestGSTIN: buyerGSTIN},
		}},
	}))

	require.NoError(t, store.SaveLedgerEntry(ctx, storage.LedgerEntry{LedgerRow: model.LedgerRow{
		InvoiceNumber: "H-001",
		InvoiceDate:   "15/03/2024",
		Value:         decimal.NewFromInt(1000),
		BuyerGSTIN:    buyerGSTIN,
		SourceTable:   model.SourceTable2B,
	}}))
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _ := createTestServer(t)

	var health dto.HealthResponse
	status := getJSON(t, ts.URL+"/health", &health)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(4), health.SchemaVersion)
}

func TestAPI_Integration_ReconcileJob(t *testing.T) {
	ts, store := createTestServer(t)
	seedStore(t, store)

	// Start a ledger run
	body, _ := json.Marshal(dto.StartReconcileRequest{Mode: "ledger"})
	resp, err := http.Post(ts.URL+"/api/reconcile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var started dto.StartReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Poll until it finishes
	var job dto.JobResponse
	require.Eventually(t, func() bool {
		getJSON(t, ts.URL+"/api/reconcile/"+started.JobID, &job)
		return job.Status == string(service.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, job.Summary)
	assert.Equal(t, 2, job.Summary.Documents)
	assert.Equal(t, 1, job.Summary.PerfectMatches)
	assert.Equal(t, 1, job.Summary.NoMatches)
	require.Len(t, job.Summary.GoodMatches, 1)
	assert.Equal(t, "doc-1", job.Summary.GoodMatches[0].DocumentID)

	// Results are readable through the API
	var perfect dto.ResultResponse
	status := getJSON(t, ts.URL+"/api/results/doc-1/ledger", &perfect)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "perfect_match", perfect.Status)
	assert.Equal(t, 100.0, perfect.MaxScore)
	require.NotNil(t, perfect.Selected)
	assert.Equal(t, model.ReferenceMissing, perfect.Selected.Reference.Status)

	var list dto.ResultListResponse
	getJSON(t, ts.URL+"/api/results?status=no_match", &list)
	require.Len(t, list.Results, 1)
	assert.Equal(t, "doc-2", list.Results[0].DocumentID)

	// The run was recorded
	var runs dto.RunListResponse
	getJSON(t, ts.URL+"/api/runs", &runs)
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, job.Summary.RunID, runs.Runs[0].ID)
	assert.Equal(t, storage.RunStatusCompleted, runs.Runs[0].Status)
	assert.Equal(t, 1, runs.Runs[0].GoodMatches)

	var stats dto.StatsResponse
	getJSON(t, ts.URL+"/api/stats", &stats)
	assert.Equal(t, 2, stats.TotalResults)
	assert.Equal(t, 1, stats.PerfectCount)
}

func TestAPI_Integration_DryRunWritesNothing(t *testing.T) {
	ts, store := createTestServer(t)
	seedStore(t, store)

	body, _ := json.Marshal(dto.StartReconcileRequest{Mode: "one_to_one", DryRun: true})
	resp, err := http.Post(ts.URL+"/api/reconcile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var started dto.StartReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()

	var job dto.JobResponse
	require.Eventually(t, func() bool {
		getJSON(t, ts.URL+"/api/reconcile/"+started.JobID, &job)
		return job.Status == string(service.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, job.Summary.Matched)

	var list dto.ResultListResponse
	getJSON(t, ts.URL+"/api/results", &list)
	assert.Equal(t, 0, list.TotalCount)
}
