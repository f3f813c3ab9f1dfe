package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateGSTLedger, downCreateGSTLedger)
}

func upCreateGSTLedger(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gst_ledger_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invoice_number TEXT NOT NULL DEFAULT '',
			invoice_date TEXT NOT NULL DEFAULT '',
			invoice_value TEXT NOT NULL DEFAULT '',
			supplier_gstin TEXT NOT NULL DEFAULT '',
			buyer_gstin TEXT NOT NULL DEFAULT '',
			source_table TEXT NOT NULL DEFAULT '',
			irn TEXT NOT NULL DEFAULT '',
			vendor_type TEXT NOT NULL DEFAULT '',
			tax_rate INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gst_ledger_rows_buyer ON gst_ledger_rows(buyer_gstin)`,
		`CREATE TABLE IF NOT EXISTS irn_records (
			irn TEXT PRIMARY KEY,
			invoice_number TEXT NOT NULL DEFAULT '',
			invoice_date TEXT NOT NULL DEFAULT '',
			invoice_value TEXT NOT NULL DEFAULT '',
			supplier_gstin TEXT NOT NULL DEFAULT '',
			buyer_gstin TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func downCreateGSTLedger(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS irn_records`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS gst_ledger_rows`)
	return err
}
