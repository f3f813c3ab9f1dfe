package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for documents, the GST ledger,
// match results and run history. It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, slog.Default())
}

// NewStorageWithLogger creates a storage instance that logs through logger
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; workers queue on the single connection
	// instead of failing with "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	s := &Storage{db: db, logger: logger}

	// Run all pending migrations
	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// GetStats returns result statistics across all modes
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ModeStats: make(map[string]ModeStats),
	}

	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN status = 'matched' THEN 1 END) as matched,
		COUNT(CASE WHEN status = 'perfect_match' THEN 1 END) as perfect,
		COUNT(CASE WHEN status = 'no_match' THEN 1 END) as no_match,
		COALESCE(AVG(max_score), 0) as avg_score
	FROM match_results
	`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalResults,
		&stats.MatchedCount,
		&stats.PerfectCount,
		&stats.NoMatchCount,
		&stats.AverageMaxScore,
	)
	if err != nil {
		return nil, err
	}

	modeQuery := `
	SELECT
		mode,
		COUNT(*) as count,
		COUNT(CASE WHEN status != 'no_match' THEN 1 END) as matched,
		COALESCE(AVG(max_score), 0) as avg_score
	FROM match_results
	GROUP BY mode
	`

	rows, err := s.db.QueryContext(ctx, modeQuery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var mode string
		var ms ModeStats
		if err := rows.Scan(&mode, &ms.Count, &ms.MatchedCount, &ms.AverageScore); err != nil {
			return nil, err
		}
		stats.ModeStats[mode] = ms
	}

	return stats, rows.Err()
}
