package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/scorer"
	"github.com/eshaffer321/gst-reconcile/internal/domain/value"
)

// ledgerDateLayout is the canonical DD/MM/YYYY form ledger dates are served in
const ledgerDateLayout = "02/01/2006"

// extra layouts seen in return exports, tried after the scorer's layouts
var ledgerDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02-Jan-2006",
	"2006-01-02T15:04:05Z07:00",
}

// SaveLedgerEntry appends a ledger row
func (s *Storage) SaveLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	query := `
	INSERT INTO gst_ledger_rows
	(invoice_number, invoice_date, invoice_value, supplier_gstin, buyer_gstin,
	 source_table, irn, vendor_type, tax_rate)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.InvoiceNumber,
		entry.InvoiceDate,
		entry.Value.String(),
		entry.SupplierGSTIN,
		entry.BuyerGSTIN,
		entry.SourceTable,
		entry.IRN,
		entry.VendorType,
		entry.TaxRate,
	)
	return err
}

// FetchLedger loads the ledger rows for one batch. Dates are normalised to
// DD/MM/YYYY; rows whose value does not parse are dropped with a warning.
func (s *Storage) FetchLedger(ctx context.Context, filter LedgerFilter) ([]model.LedgerRow, error) {
	var where []string
	var args []interface{}

	if len(filter.TaxIDPrefixes) > 0 {
		// A GSTIN embeds the holder's PAN at characters 3-12
		placeholders := make([]string, len(filter.TaxIDPrefixes))
		for i, pan := range filter.TaxIDPrefixes {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(strings.TrimSpace(pan)))
		}
		where = append(where, "substr(upper(buyer_gstin), 3, 10) IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ExcludeVendorType != "" {
		where = append(where, "vendor_type != ?")
		args = append(args, filter.ExcludeVendorType)
	}
	if filter.TaxRate > 0 {
		where = append(where, "tax_rate = ?")
		args = append(args, filter.TaxRate)
	}

	query := `
	SELECT id, invoice_number, invoice_date, invoice_value, supplier_gstin,
	       buyer_gstin, source_table, irn
	FROM gst_ledger_rows`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ledger []model.LedgerRow
	dropped := 0
	for rows.Next() {
		var id int64
		var row model.LedgerRow
		var rawValue string
		err := rows.Scan(
			&id,
			&row.InvoiceNumber,
			&row.InvoiceDate,
			&rawValue,
			&row.SupplierGSTIN,
			&row.BuyerGSTIN,
			&row.SourceTable,
			&row.IRN,
		)
		if err != nil {
			return nil, err
		}

		row.Value, err = value.ParseAmount(rawValue)
		if err != nil {
			s.logger.Warn("dropping ledger row with unparseable value",
				"row_id", id,
				"invoice_number", row.InvoiceNumber,
				"value", rawValue,
			)
			dropped++
			continue
		}
		row.InvoiceDate = normaliseLedgerDate(row.InvoiceDate)

		ledger = append(ledger, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("loaded ledger", "rows", len(ledger), "dropped", dropped)
	return ledger, nil
}

// normaliseLedgerDate rewrites a date in DD/MM/YYYY form, leaving values it
// cannot read untouched.
func normaliseLedgerDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, err := scorer.ParseDate(raw); err == nil {
		return t.Format(ledgerDateLayout)
	}
	for _, layout := range ledgerDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ledgerDateLayout)
		}
	}
	return raw
}

// SaveIRNRecord inserts or replaces a registry record
func (s *Storage) SaveIRNRecord(ctx context.Context, record model.IRNRecord) error {
	query := `
	INSERT OR REPLACE INTO irn_records
	(irn, invoice_number, invoice_date, invoice_value, supplier_gstin, buyer_gstin)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.IRN,
		record.InvoiceNumber,
		record.InvoiceDate,
		record.Value.String(),
		record.SupplierGSTIN,
		record.BuyerGSTIN,
	)
	return err
}

// LookupIRN returns the registry record for irn, or nil if there is none
func (s *Storage) LookupIRN(ctx context.Context, irn string) (*model.IRNRecord, error) {
	query := `
	SELECT irn, invoice_number, invoice_date, invoice_value, supplier_gstin, buyer_gstin
	FROM irn_records WHERE irn = ?
	`

	var record model.IRNRecord
	var rawValue string
	err := s.db.QueryRowContext(ctx, query, irn).Scan(
		&record.IRN,
		&record.InvoiceNumber,
		&record.InvoiceDate,
		&rawValue,
		&record.SupplierGSTIN,
		&record.BuyerGSTIN,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Registry values are informational; a bad one should not hide the record
	if v, perr := decimal.NewFromString(rawValue); perr == nil {
		record.Value = v
	}
	return &record, nil
}
