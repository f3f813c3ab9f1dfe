package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
// It is safe for concurrent use so it can back a worker pool.
type MockRepository struct {
	mu         sync.Mutex
	documents  map[string]model.BookingDocument
	ledger     []LedgerEntry
	irn        map[string]model.IRNRecord
	results    map[resultKey]model.MatchResult
	runs       map[string]*Run
	runOrder   []string
	nextRunSeq int

	// Hooks for test assertions
	UpsertCalls       int
	LastUpserted      *model.MatchResult
	LookupCalls       []string
	StartRunCalled    bool
	CompleteRunCalled bool
	LastRunTotals     RunTotals

	// Error injection for testing error paths
	FetchDocumentsErr error
	FetchLedgerErr    error
	LookupIRNErr      error
	UpsertErr         error
	StartRunErr       error
	CompleteRunErr    error
	ReadErr           error // Returned by every result and run query
}

type resultKey struct {
	documentID string
	mode       model.Mode
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		documents:  make(map[string]model.BookingDocument),
		irn:        make(map[string]model.IRNRecord),
		results:    make(map[resultKey]model.MatchResult),
		runs:       make(map[string]*Run),
		nextRunSeq: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveDocument stores a document in memory
func (m *MockRepository) SaveDocument(_ context.Context, doc model.BookingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	return nil
}

// FetchDocuments applies the filter to the stored documents, ordered by ID
func (m *MockRepository) FetchDocuments(_ context.Context, filter DocumentFilter) ([]model.BookingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchDocumentsErr != nil {
		return nil, m.FetchDocumentsErr
	}

	var docs []model.BookingDocument
	for _, doc := range m.documents {
		if filter.BookingType != "" && doc.BookingType != filter.BookingType {
			continue
		}
		if filter.ExpenseClientID != "" && doc.ExpenseClientID != filter.ExpenseClientID {
			continue
		}
		if filter.RequireInvoice && len(doc.Invoices)+len(doc.ParsedInvoices) == 0 {
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

// SaveLedgerEntry appends a ledger row
func (m *MockRepository) SaveLedgerEntry(_ context.Context, entry LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = append(m.ledger, entry)
	return nil
}

// FetchLedger returns stored rows that pass the filter, in insertion order
func (m *MockRepository) FetchLedger(_ context.Context, filter LedgerFilter) ([]model.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchLedgerErr != nil {
		return nil, m.FetchLedgerErr
	}

	var rows []model.LedgerRow
	for _, entry := range m.ledger {
		if len(filter.TaxIDPrefixes) > 0 && !hasPAN(entry.BuyerGSTIN, filter.TaxIDPrefixes) {
			continue
		}
		if filter.ExcludeVendorType != "" && entry.VendorType == filter.ExcludeVendorType {
			continue
		}
		if filter.TaxRate > 0 && entry.TaxRate != filter.TaxRate {
			continue
		}
		rows = append(rows, entry.LedgerRow)
	}
	return rows, nil
}

func hasPAN(gstin string, pans []string) bool {
	if len(gstin) < 12 {
		return false
	}
	embedded := strings.ToUpper(gstin[2:12])
	for _, pan := range pans {
		if strings.ToUpper(strings.TrimSpace(pan)) == embedded {
			return true
		}
	}
	return false
}

// SaveIRNRecord stores a registry record
func (m *MockRepository) SaveIRNRecord(_ context.Context, record model.IRNRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.irn[record.IRN] = record
	return nil
}

// LookupIRN returns the stored registry record, or nil
func (m *MockRepository) LookupIRN(_ context.Context, irn string) (*model.IRNRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls = append(m.LookupCalls, irn)
	if m.LookupIRNErr != nil {
		return nil, m.LookupIRNErr
	}
	record, ok := m.irn[irn]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// UpsertResult applies the same no_match guard as the SQLite store
func (m *MockRepository) UpsertResult(_ context.Context, result model.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	copied := result
	m.LastUpserted = &copied
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	key := resultKey{documentID: result.DocumentID, mode: result.Mode}
	if existing, ok := m.results[key]; ok && result.Status == model.StatusNoMatch {
		if existing.Status != model.StatusNoMatch || existing.MaxScore >= result.MaxScore {
			return nil
		}
	}
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}
	m.results[key] = result
	return nil
}

// GetResult returns the stored result or ErrNotFound
func (m *MockRepository) GetResult(_ context.Context, documentID string, mode model.Mode) (*model.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	result, ok := m.results[resultKey{documentID: documentID, mode: mode}]
	if !ok {
		return nil, ErrNotFound
	}
	return &result, nil
}

// GetResults returns every stored result for a document, ordered by mode
func (m *MockRepository) GetResults(_ context.Context, documentID string) ([]model.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []model.MatchResult
	for key, result := range m.results {
		if key.documentID == documentID {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out, nil
}

// ListResults returns results matching the given filters with pagination
func (m *MockRepository) ListResults(_ context.Context, filters ResultFilters) (*ResultListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	matching := []model.MatchResult{}
	for _, r := range m.results {
		if filters.Mode != "" && string(r.Mode) != filters.Mode {
			continue
		}
		if filters.Status != "" && string(r.Status) != filters.Status {
			continue
		}
		if r.MaxScore < filters.MinScore {
			continue
		}
		matching = append(matching, r)
	}
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].MaxScore != matching[j].MaxScore {
			return matching[i].MaxScore > matching[j].MaxScore
		}
		return matching[i].DocumentID < matching[j].DocumentID
	})

	// Apply defaults
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	// Apply pagination
	total := len(matching)
	start := filters.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &ResultListResult{
		Results:    matching[start:end],
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// GetStats returns statistics over the stored results
func (m *MockRepository) GetStats(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	stats := &Stats{ModeStats: make(map[string]ModeStats)}
	var total float64
	modeTotals := make(map[string]float64)

	for _, r := range m.results {
		stats.TotalResults++
		total += r.MaxScore
		switch r.Status {
		case model.StatusMatched:
			stats.MatchedCount++
		case model.StatusPerfectMatch:
			stats.PerfectCount++
		case model.StatusNoMatch:
			stats.NoMatchCount++
		}

		ms := stats.ModeStats[string(r.Mode)]
		ms.Count++
		if r.Status != model.StatusNoMatch {
			ms.MatchedCount++
		}
		modeTotals[string(r.Mode)] += r.MaxScore
		stats.ModeStats[string(r.Mode)] = ms
	}

	if stats.TotalResults > 0 {
		stats.AverageMaxScore = total / float64(stats.TotalResults)
	}
	for mode, ms := range stats.ModeStats {
		ms.AverageScore = modeTotals[mode] / float64(ms.Count)
		stats.ModeStats[mode] = ms
	}

	return stats, nil
}

// StartRun creates a new run and returns its ID
func (m *MockRepository) StartRun(_ context.Context, mode model.Mode, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return "", m.StartRunErr
	}

	id := fmt.Sprintf("run-%d", m.nextRunSeq)
	m.nextRunSeq++

	m.runs[id] = &Run{
		ID:        id,
		Mode:      string(mode),
		DryRun:    dryRun,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    RunStatusRunning,
	}
	m.runOrder = append(m.runOrder, id)
	return id, nil
}

// CompleteRun marks a run as complete
func (m *MockRepository) CompleteRun(_ context.Context, runID string, totals RunTotals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteRunCalled = true
	m.LastRunTotals = totals
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}

	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.Documents = totals.Documents
	run.Scanned = totals.Scanned
	run.Matched = totals.Matched
	run.Perfect = totals.Perfect
	run.NoMatch = totals.NoMatch
	run.Skipped = totals.Skipped
	run.Failed = totals.Failed
	run.GoodMatches = totals.GoodMatches
	run.Status = RunStatusCompleted
	if totals.Failed > 0 {
		run.Status = RunStatusCompletedWithErrors
	}
	return nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if limit <= 0 {
		limit = 20
	}

	runs := []Run{}
	for i := len(m.runOrder) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, *m.runs[m.runOrder[i]])
	}
	return runs, nil
}

// GetRun returns a run or ErrNotFound
func (m *MockRepository) GetRun(_ context.Context, runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

// Results returns a snapshot of every stored result, for assertions
func (m *MockRepository) Results() []model.MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MatchResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}
