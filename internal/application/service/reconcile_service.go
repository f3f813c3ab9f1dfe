package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/logging"
)

// JobStatus represents the current state of a reconcile job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without a progress
	// update before it is considered hung.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the longest a job may run before it is
	// marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour
)

var (
	// ErrJobNotFound is returned for an unknown job ID
	ErrJobNotFound = errors.New("job not found")

	// ErrModeBusy is returned when a run for the same mode is already active
	ErrModeBusy = errors.New("reconcile already running for mode")

	// ErrJobFinished is returned when cancelling a job that already ended
	ErrJobFinished = errors.New("job cannot be cancelled")
)

// JobRequest holds parameters for starting a reconcile job.
type JobRequest struct {
	Mode       model.Mode
	DryRun     bool
	Limit      int
	Workers    int // Overrides the configured pool size when positive
	DocumentID string
	Verbose    bool
}

// JobProgress holds real-time progress information.
type JobProgress struct {
	Phase      string // "pending", "reconciling", "completed", "failed", "cancelled"
	Total      int
	Completed  int
	Failed     int
	LastUpdate time.Time
}

// Job is a snapshot of a running or finished reconcile job.
type Job struct {
	ID          string
	Status      JobStatus
	Request     JobRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    JobProgress
	Summary     *reconcile.Summary
	Error       error
}

type jobState struct {
	Job
	cancel context.CancelFunc
}

// ReconcileService runs reconcile batches in the background for the API.
type ReconcileService struct {
	cfg    *config.Config
	deps   reconcile.Deps
	logger *slog.Logger

	jobs      map[string]*jobState
	jobsMutex sync.RWMutex

	// Only one active job per mode; value is the owning job ID
	active map[model.Mode]string

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(cfg *config.Config, deps reconcile.Deps, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		jobs:   make(map[string]*jobState),
		active: make(map[model.Mode]string),
	}
}

// StartJob starts a reconcile job asynchronously and returns its ID.
// The passed context is not the parent of the job; use CancelJob to stop it.
func (s *ReconcileService) StartJob(_ context.Context, req JobRequest) (string, error) {
	if !req.Mode.Valid() {
		return "", fmt.Errorf("%w: %q", reconcile.ErrInvalidMode, req.Mode)
	}

	orchCfg := reconcile.ConfigFrom(s.cfg)
	if req.Workers > 0 {
		orchCfg.Workers = req.Workers
	}

	loggingCfg := s.cfg.Observability.Logging
	if req.Verbose {
		loggingCfg.Level = "debug"
	}
	orch, err := reconcile.NewOrchestrator(orchCfg, s.deps, logging.NewLoggerWithSystem(loggingCfg, "reconcile"))
	if err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &jobState{
		Job: Job{
			ID:        uuid.NewString(),
			Status:    StatusPending,
			Request:   req,
			StartedAt: now,
			Progress:  JobProgress{Phase: "pending", LastUpdate: now},
		},
		cancel: cancel,
	}

	s.jobsMutex.Lock()
	if owner, busy := s.active[req.Mode]; busy {
		s.jobsMutex.Unlock()
		cancel()
		return "", fmt.Errorf("%w: %s (job %s)", ErrModeBusy, req.Mode, owner)
	}
	s.active[req.Mode] = job.ID
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, orch, job.ID, req)

	s.logger.Info("reconcile job started",
		"job_id", job.ID,
		"mode", req.Mode,
		"dry_run", req.DryRun,
		"workers", orchCfg.Workers,
	)
	return job.ID, nil
}

// GetJob returns a snapshot of a job.
func (s *ReconcileService) GetJob(jobID string) (Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.Job, nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (s *ReconcileService) ListJobs(activeOnly bool) []Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if activeOnly && !job.isActive() {
			continue
		}
		jobs = append(jobs, job.Job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

// CancelJob cancels a pending or running job. Documents already being
// reconciled finish; nothing new is scheduled.
func (s *ReconcileService) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if !job.isActive() {
		return fmt.Errorf("%w: status=%s", ErrJobFinished, job.Status)
	}

	job.cancel()
	s.finishLocked(job, StatusCancelled, "cancelled")
	s.logger.Info("reconcile job cancelled", "job_id", jobID)
	return nil
}

func (s *ReconcileService) runJob(ctx context.Context, orch *reconcile.Orchestrator, jobID string, req JobRequest) {
	s.update(jobID, func(job *jobState) {
		job.Status = StatusRunning
		job.Progress.Phase = "reconciling"
	})

	summary, err := orch.Run(ctx, reconcile.Options{
		Mode:       req.Mode,
		DryRun:     req.DryRun,
		Limit:      req.Limit,
		DocumentID: req.DocumentID,
		ProgressCallback: func(p reconcile.Progress) {
			s.update(jobID, func(job *jobState) {
				job.Progress.Total = p.Total
				job.Progress.Completed = p.Completed
				job.Progress.Failed = p.Failed
			})
		},
	})

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return
	}
	// Cancelled or marked stale while running; keep the partial summary only
	if !job.isActive() {
		job.Summary = summary
		return
	}

	job.Summary = summary
	if err != nil {
		job.Error = err
		s.finishLocked(job, StatusFailed, "failed")
		s.logger.Error("reconcile job failed", "job_id", jobID, "error", err)
		return
	}

	job.Progress.Total = summary.Documents
	job.Progress.Completed = summary.Completed()
	job.Progress.Failed = summary.Failed
	s.finishLocked(job, StatusCompleted, "completed")
	s.logger.Info("reconcile job completed",
		"job_id", jobID,
		"documents", summary.Documents,
		"good_matches", len(summary.GoodMatches),
		"failed", summary.Failed,
	)
}

// update applies fn to an active job and bumps its progress timestamp.
func (s *ReconcileService) update(jobID string, fn func(*jobState)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.isActive() {
		fn(job)
		job.Progress.LastUpdate = time.Now()
	}
}

// finishLocked ends a job and frees its mode. Callers hold jobsMutex.
func (s *ReconcileService) finishLocked(job *jobState, status JobStatus, phase string) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.Progress.Phase = phase
	job.Progress.LastUpdate = now

	if s.active[job.Request.Mode] == job.ID {
		delete(s.active, job.Request.Mode)
	}
}

func (j *jobState) isActive() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *ReconcileService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if !job.isActive() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconcile jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed fails jobs that ran longer than maxDuration or
// reported no progress for staleThreshold.
func (s *ReconcileService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0
	for id, job := range s.jobs {
		if !job.isActive() {
			continue
		}

		reason := ""
		switch {
		case now.Sub(job.StartedAt) > maxDuration:
			reason = fmt.Sprintf("exceeded max duration of %v", maxDuration)
		case now.Sub(job.Progress.LastUpdate) > staleThreshold:
			reason = fmt.Sprintf("no progress update for %v", now.Sub(job.Progress.LastUpdate).Round(time.Second))
		default:
			continue
		}

		job.cancel()
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		s.finishLocked(job, StatusFailed, "failed")
		s.logger.Warn("marked stale job as failed", "job_id", id, "mode", job.Request.Mode, "reason", reason)
		marked++
	}
	return marked
}

// StartBackgroundCleanup periodically fails stale jobs and drops finished
// jobs older than a day. Call StopBackgroundCleanup to stop it.
func (s *ReconcileService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(24 * time.Hour)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and waits for it.
func (s *ReconcileService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
