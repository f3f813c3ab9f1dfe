// Package pgstore is a PostgreSQL sink for match results, used when results
// are published to a shared database instead of the local SQLite file.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// matchResultRow is the match_results table. The full result is kept as
// JSONB; status and score are columns so the upsert guard can read them.
type matchResultRow struct {
	DocumentID string         `gorm:"column:document_id;primaryKey"`
	Mode       string         `gorm:"column:mode;primaryKey"`
	Status     string         `gorm:"column:status;index;not null"`
	MaxScore   float64        `gorm:"column:max_score;not null;default:0"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null"`
}

func (matchResultRow) TableName() string { return "match_results" }

// Store writes match results to PostgreSQL
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn and migrates the results table
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&matchResultRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate match_results: %w", err)
	}

	return New(db, logger), nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// upsertClause mirrors the SQLite store: a no_match only replaces a stored
// no_match with a lower max score.
func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "mode"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "max_score", "payload", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "excluded.status <> ? OR (match_results.status = ? AND match_results.max_score < excluded.max_score)",
				Vars: []interface{}{string(model.StatusNoMatch), string(model.StatusNoMatch)},
			},
		}},
	}
}

func toRow(result model.MatchResult) (matchResultRow, error) {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return matchResultRow{}, err
	}
	return matchResultRow{
		DocumentID: result.DocumentID,
		Mode:       string(result.Mode),
		Status:     string(result.Status),
		MaxScore:   result.MaxScore,
		Payload:    datatypes.JSON(payload),
		UpdatedAt:  result.UpdatedAt,
	}, nil
}

// UpsertResult writes the result for its document and mode
func (s *Store) UpsertResult(ctx context.Context, result model.MatchResult) error {
	row, err := toRow(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", result.DocumentID, err)
	}

	tx := s.db.WithContext(ctx).Clauses(upsertClause()).Create(&row)
	if tx.Error != nil {
		return fmt.Errorf("failed to upsert result for %s: %w", result.DocumentID, tx.Error)
	}

	s.logger.Debug("upserted result",
		"document_id", result.DocumentID,
		"mode", result.Mode,
		"status", result.Status,
		"applied", tx.RowsAffected > 0,
	)
	return nil
}

// GetResult retrieves the result of one document in one mode
func (s *Store) GetResult(ctx context.Context, documentID string, mode model.Mode) (*model.MatchResult, error) {
	var row matchResultRow
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND mode = ?", documentID, string(mode)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result model.MatchResult
	if err := json.Unmarshal(row.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for %s: %w", documentID, err)
	}
	return &result, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
