package dto

import "github.com/eshaffer321/gst-reconcile/internal/domain/model"

// StartReconcileRequest is the request body for starting a reconcile job.
type StartReconcileRequest struct {
	Mode       string `json:"mode"`        // "one_to_one" or "ledger"
	DryRun     bool   `json:"dry_run"`     // Score without persisting
	Limit      int    `json:"limit"`       // Max documents (0 = configured batch limit)
	Workers    int    `json:"workers"`     // Pool size (0 = configured)
	DocumentID string `json:"document_id"` // Optional: reconcile only this document
	Verbose    bool   `json:"verbose"`
}

// StartReconcileResponse is returned when a job is accepted.
type StartReconcileResponse struct {
	JobID  string `json:"job_id"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
}

// JobResponse is the state of a reconcile job.
type JobResponse struct {
	JobID       string           `json:"job_id"`
	Mode        string           `json:"mode"`
	Status      string           `json:"status"`
	DryRun      bool             `json:"dry_run"`
	StartedAt   string           `json:"started_at"`
	CompletedAt *string          `json:"completed_at,omitempty"`
	Progress    ProgressResponse `json:"progress"`
	Summary     *SummaryResponse `json:"summary,omitempty"`
	Error       *string          `json:"error,omitempty"`
}

// ProgressResponse is the live progress of a job.
type ProgressResponse struct {
	Phase      string `json:"phase"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	LastUpdate string `json:"last_update"`
}

// SummaryResponse is the outcome of a finished job.
type SummaryResponse struct {
	RunID          string            `json:"run_id,omitempty"`
	Documents      int               `json:"documents"`
	Scanned        int               `json:"scanned"`
	Matched        int               `json:"matched"`
	PerfectMatches int               `json:"perfect_matches"`
	NoMatches      int               `json:"no_matches"`
	Skipped        int               `json:"skipped"`
	Failed         int               `json:"failed"`
	GoodMatches    []model.GoodMatch `json:"good_matches"`
	DurationMS     int64             `json:"duration_ms"`
}

// JobListResponse lists jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
