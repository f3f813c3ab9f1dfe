package model

import "github.com/shopspring/decimal"

// SourceTable2B tags rows that came from the GST 2B return.
const SourceTable2B = "2b"

// LedgerRow is one invoice line from the government tax return.
type LedgerRow struct {
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	Value         decimal.Decimal `json:"invoice_value"`
	SupplierGSTIN string          `json:"supplier_gstin"`
	BuyerGSTIN    string          `json:"buyer_gstin"`
	SourceTable   string          `json:"gst_table"`
	IRN           string          `json:"irn,omitempty"`
}

// IRNRecord is the e-invoice registry entry referenced by a ledger row.
type IRNRecord struct {
	IRN           string          `json:"irn"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	Value         decimal.Decimal `json:"invoice_value"`
	SupplierGSTIN string          `json:"supplier_gstin"`
	BuyerGSTIN    string          `json:"buyer_gstin"`
}
