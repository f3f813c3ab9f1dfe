package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// StartRun records the start of a reconcile run
func (s *Storage) StartRun(ctx context.Context, mode model.Mode, dryRun bool) (string, error) {
	runID := uuid.NewString()

	query := `
		INSERT INTO reconcile_runs (id, mode, dry_run, status)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, runID, string(mode), dryRun, RunStatusRunning); err != nil {
		return "", err
	}
	return runID, nil
}

// CompleteRun records the completion of a reconcile run
func (s *Storage) CompleteRun(ctx context.Context, runID string, totals RunTotals) error {
	query := `
		UPDATE reconcile_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    documents = ?,
		    scanned = ?,
		    matched = ?,
		    perfect = ?,
		    no_match = ?,
		    skipped = ?,
		    failed = ?,
		    good_matches = ?,
		    status = CASE WHEN ? > 0 THEN 'completed_with_errors' ELSE 'completed' END
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		totals.Documents,
		totals.Scanned,
		totals.Matched,
		totals.Perfect,
		totals.NoMatch,
		totals.Skipped,
		totals.Failed,
		totals.GoodMatches,
		totals.Failed,
		runID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `
	id, mode, dry_run, started_at, completed_at, documents, scanned, matched,
	perfect, no_match, skipped, failed, good_matches, status
`

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM reconcile_runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM reconcile_runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var completedAt sql.NullString
	err := row.Scan(
		&run.ID,
		&run.Mode,
		&run.DryRun,
		&run.StartedAt,
		&completedAt,
		&run.Documents,
		&run.Scanned,
		&run.Matched,
		&run.Perfect,
		&run.NoMatch,
		&run.Skipped,
		&run.Failed,
		&run.GoodMatches,
		&run.Status,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.String
	}
	return &run, nil
}
