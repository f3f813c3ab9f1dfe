package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// upsertResultQuery replaces an existing row unless the incoming result is a
// no_match that does not beat a stored no_match. A stored match is never
// downgraded to no_match.
const upsertResultQuery = `
INSERT INTO match_results (document_id, mode, status, max_score, payload, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(document_id, mode) DO UPDATE SET
	status = excluded.status,
	max_score = excluded.max_score,
	payload = excluded.payload,
	updated_at = excluded.updated_at
WHERE excluded.status != 'no_match'
   OR (match_results.status = 'no_match' AND match_results.max_score < excluded.max_score)
`

// UpsertResult writes the result for its document and mode
func (s *Storage) UpsertResult(ctx context.Context, result model.MatchResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", result.DocumentID, err)
	}

	_, err = s.db.ExecContext(ctx, upsertResultQuery,
		result.DocumentID,
		string(result.Mode),
		string(result.Status),
		result.MaxScore,
		string(payload),
		result.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert result for %s: %w", result.DocumentID, err)
	}
	return nil
}

// GetResult retrieves the result of one document in one mode
func (s *Storage) GetResult(ctx context.Context, documentID string, mode model.Mode) (*model.MatchResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM match_results WHERE document_id = ? AND mode = ?`,
		documentID, string(mode),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result model.MatchResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for %s: %w", documentID, err)
	}
	return &result, nil
}

// GetResults retrieves every stored result for a document, ordered by mode
func (s *Storage) GetResults(ctx context.Context, documentID string) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM match_results WHERE document_id = ? ORDER BY mode`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanResults(rows)
}

// ListResults returns results matching the given filters with pagination,
// highest score first
func (s *Storage) ListResults(ctx context.Context, filters ResultFilters) (*ResultListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var where []string
	var args []interface{}

	if filters.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, filters.Mode)
	}
	if filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filters.Status)
	}
	if filters.MinScore > 0 {
		where = append(where, "max_score >= ?")
		args = append(args, filters.MinScore)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_results"+whereClause, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := "SELECT payload FROM match_results" + whereClause +
		" ORDER BY max_score DESC, document_id ASC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.MatchResult{}
	}

	return &ResultListResult{
		Results:    results,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

func scanResults(rows *sql.Rows) ([]model.MatchResult, error) {
	var results []model.MatchResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var result model.MatchResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
