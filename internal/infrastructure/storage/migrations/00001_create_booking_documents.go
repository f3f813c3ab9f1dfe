package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookingDocuments, downCreateBookingDocuments)
}

// upCreateBookingDocuments stores each booking document as its JSON payload,
// with the columns the batch query filters on pulled out.
func upCreateBookingDocuments(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS booking_documents (
			id TEXT PRIMARY KEY,
			booking_type TEXT NOT NULL DEFAULT '',
			expense_client_id TEXT NOT NULL DEFAULT '',
			has_invoice INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_booking_documents_batch
		ON booking_documents(booking_type, expense_client_id, has_invoice)
	`)
	return err
}

func downCreateBookingDocuments(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS booking_documents`)
	return err
}
