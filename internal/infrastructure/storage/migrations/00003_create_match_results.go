package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMatchResults, downCreateMatchResults)
}

// upCreateMatchResults keys results by document and mode so both matchers
// can keep a result for the same document.
func upCreateMatchResults(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS match_results (
			document_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			max_score REAL NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (document_id, mode)
		)
	`); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_match_results_status ON match_results(status)`)
	return err
}

func downCreateMatchResults(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS match_results`)
	return err
}
