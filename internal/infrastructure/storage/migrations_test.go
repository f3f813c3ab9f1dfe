package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// latestSchemaVersion is the version of the newest migration
const latestSchemaVersion = 4

var storeTables = []string{"booking_documents", "gst_ledger_rows", "irn_records", "match_results", "reconcile_runs"}

// newTestStorage opens a migrated store in the test's temp dir
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "gst_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func tableExists(t *testing.T, store *Storage, table string) bool {
	t.Helper()
	var n int
	err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrations_FreshDatabase(t *testing.T) {
	store := newTestStorage(t)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(latestSchemaVersion), version)

	for _, table := range storeTables {
		assert.True(t, tableExists(t, store, table), "%s should exist", table)
	}
}

func TestMigrations_ReopenAppliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveIRNRecord(context.Background(), model.IRNRecord{IRN: "irn-keep", InvoiceNumber: "H-1"}))
	require.NoError(t, store.Close())

	store, err = NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	provider, err := goose.NewProvider(goose.DialectSQLite3, store.db, nil)
	require.NoError(t, err)
	pending, err := provider.HasPending(context.Background())
	require.NoError(t, err)
	assert.False(t, pending)

	// Data written before the reopen survives
	record, err := store.LookupIRN(context.Background(), "irn-keep")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestMigrations_DownAndUpAgain(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	provider, err := goose.NewProvider(goose.DialectSQLite3, store.db, nil)
	require.NoError(t, err)

	// Roll back run history only
	_, err = provider.Down(ctx)
	require.NoError(t, err)
	assert.False(t, tableExists(t, store, "reconcile_runs"))
	assert.True(t, tableExists(t, store, "match_results"))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(latestSchemaVersion-1), version)

	require.NoError(t, store.runMigrations(ctx))
	assert.True(t, tableExists(t, store, "reconcile_runs"))
}

func TestMigrations_ResultKey(t *testing.T) {
	store := newTestStorage(t)
	insert := `INSERT INTO match_results (document_id, mode, status, payload, updated_at) VALUES (?, ?, 'matched', '{}', CURRENT_TIMESTAMP)`

	// One row per document and mode
	_, err := store.db.Exec(insert, "d", "ledger")
	require.NoError(t, err)
	_, err = store.db.Exec(insert, "d", "one_to_one")
	assert.NoError(t, err)
	_, err = store.db.Exec(insert, "d", "ledger")
	assert.Error(t, err)
}
