package dto

import (
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SchemaVersion int64  `json:"schema_version,omitempty"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ResultResponse is one stored match result.
type ResultResponse struct {
	DocumentID string                `json:"document_id"`
	Mode       string                `json:"mode"`
	Status     string                `json:"status"`
	MaxScore   float64               `json:"max_combined_score"`
	UpdatedAt  string                `json:"updated_at"`
	Invoice    *model.InvoiceDetails `json:"invoice_details,omitempty"`
	Selected   *model.Candidate      `json:"selected,omitempty"`
	Candidates []model.Candidate     `json:"candidates,omitempty"`
	Pairings   []model.Pairing       `json:"pairings,omitempty"`
}

// NewResultResponse converts a stored result.
func NewResultResponse(r model.MatchResult) ResultResponse {
	return ResultResponse{
		DocumentID: r.DocumentID,
		Mode:       string(r.Mode),
		Status:     string(r.Status),
		MaxScore:   r.MaxScore,
		UpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339),
		Invoice:    r.Invoice,
		Selected:   r.Selected,
		Candidates: r.Candidates,
		Pairings:   r.Pairings,
	}
}

// ResultListResponse is returned when listing results.
type ResultListResponse struct {
	Results    []ResultResponse `json:"results"`
	TotalCount int              `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// DocumentResultsResponse holds every mode's result for one document.
type DocumentResultsResponse struct {
	DocumentID string           `json:"document_id"`
	Results    []ResultResponse `json:"results"`
}

// RunResponse is one reconcile run from history.
type RunResponse struct {
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	DryRun         bool   `json:"dry_run"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	Documents      int    `json:"documents"`
	Scanned        int    `json:"scanned"`
	Matched        int    `json:"matched"`
	PerfectMatches int    `json:"perfect_matches"`
	NoMatches      int    `json:"no_matches"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	GoodMatches    int    `json:"good_matches"`
	Status         string `json:"status"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ModeStatsResponse holds the statistics of one mode.
type ModeStatsResponse struct {
	Mode         string  `json:"mode"`
	Count        int     `json:"count"`
	MatchedCount int     `json:"matched_count"`
	AverageScore float64 `json:"average_score"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalResults    int                 `json:"total_results"`
	MatchedCount    int                 `json:"matched_count"`
	PerfectCount    int                 `json:"perfect_count"`
	NoMatchCount    int                 `json:"no_match_count"`
	AverageMaxScore float64             `json:"average_max_score"`
	ModeStats       []ModeStatsResponse `json:"mode_stats"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
