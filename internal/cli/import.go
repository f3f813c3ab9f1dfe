package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// ImportFile is the JSON layout accepted by the import command
type ImportFile struct {
	Documents []model.BookingDocument `json:"documents"`
	Ledger    []ImportLedgerRow       `json:"ledger"`
	IRN       []model.IRNRecord       `json:"irn_records"`
}

// ImportLedgerRow is a ledger row plus the columns used to filter batches
type ImportLedgerRow struct {
	model.LedgerRow
	VendorType string `json:"vendor_type"`
	TaxRate    int    `json:"tax_rate"`
}

// ImportCounts reports what an import wrote
type ImportCounts struct {
	Documents int
	Ledger    int
	IRN       int
	Rejected  int
}

// ImportFromFile loads path and writes its contents to repo
func ImportFromFile(ctx context.Context, repo storage.Repository, path string, logger *slog.Logger) (ImportCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportCounts{}, err
	}
	defer f.Close()
	return Import(ctx, repo, f, logger)
}

// Import decodes an ImportFile from r and writes it to repo. Documents that
// fail validation are logged and counted as rejected; a store error stops the
// import.
func Import(ctx context.Context, repo storage.Repository, r io.Reader, logger *slog.Logger) (ImportCounts, error) {
	var counts ImportCounts

	var file ImportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return counts, fmt.Errorf("failed to decode import file: %w", err)
	}

	for _, doc := range file.Documents {
		if err := doc.Validate(); err != nil {
			logger.Warn("Rejected document", slog.String("document_id", doc.ID), slog.String("error", err.Error()))
			counts.Rejected++
			continue
		}
		if err := repo.SaveDocument(ctx, doc); err != nil {
			return counts, fmt.Errorf("failed to save document %s: %w", doc.ID, err)
		}
		counts.Documents++
	}

	for _, row := range file.Ledger {
		entry := storage.LedgerEntry{LedgerRow: row.LedgerRow, VendorType: row.VendorType, TaxRate: row.TaxRate}
		if err := repo.SaveLedgerEntry(ctx, entry); err != nil {
			return counts, fmt.Errorf("failed to save ledger row %s: %w", row.InvoiceNumber, err)
		}
		counts.Ledger++
	}

	for _, record := range file.IRN {
		if err := repo.SaveIRNRecord(ctx, record); err != nil {
			return counts, fmt.Errorf("failed to save IRN record %s: %w", record.IRN, err)
		}
		counts.IRN++
	}

	logger.Info("Import complete",
		slog.Int("documents", counts.Documents),
		slog.Int("ledger_rows", counts.Ledger),
		slog.Int("irn_records", counts.IRN),
		slog.Int("rejected", counts.Rejected),
	)
	return counts, nil
}
