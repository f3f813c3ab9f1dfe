package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// SaveDocument inserts or replaces a booking document
func (s *Storage) SaveDocument(ctx context.Context, doc model.BookingDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}

	hasInvoice := len(doc.Invoices)+len(doc.ParsedInvoices) > 0

	query := `
	INSERT OR REPLACE INTO booking_documents
	(id, booking_type, expense_client_id, has_invoice, payload)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID,
		doc.BookingType,
		doc.ExpenseClientID,
		hasInvoice,
		string(payload),
	)
	return err
}

// FetchDocuments returns documents matching the filter, ordered by ID
func (s *Storage) FetchDocuments(ctx context.Context, filter DocumentFilter) ([]model.BookingDocument, error) {
	var where []string
	var args []interface{}

	if filter.BookingType != "" {
		where = append(where, "booking_type = ?")
		args = append(args, filter.BookingType)
	}
	if filter.ExpenseClientID != "" {
		where = append(where, "expense_client_id = ?")
		args = append(args, filter.ExpenseClientID)
	}
	if filter.RequireInvoice {
		where = append(where, "has_invoice = 1")
	}

	query := "SELECT id, payload FROM booking_documents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []model.BookingDocument
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}

		var doc model.BookingDocument
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			// A corrupt payload is surfaced as a malformed document so the
			// batch skips it instead of failing.
			s.logger.Warn("undecodable document payload", "document_id", id, "error", err)
			doc = model.BookingDocument{ID: id}
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}
