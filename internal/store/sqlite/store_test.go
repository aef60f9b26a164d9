package sqlite

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallybook.org/internal/ids"
	"tallybook.org/internal/ledger"
	"tallybook.org/internal/migrate"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.Migrate(context.Background())
	require.NoError(t, err)
	return s
}

func TestLoadFreshDatabase(t *testing.T) {
	s := openTestStore(t, "file:"+t.Name()+"?mode=memory&cache=shared")
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.SchemaVersion, snap.Version)
	assert.Empty(t, snap.Transactions)
	require.NoError(t, s.Ping(context.Background()))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t, "file:"+t.Name()+"?mode=memory&cache=shared")
	applied, err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestBooksSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.db")

	s := openTestStore(t, path)
	b, err := ledger.Open(ctx, s, ledger.WithIDs(ids.Sequence("id")))
	require.NoError(t, err)
	widget, err := b.CreateItem(ctx, ledger.ItemInput{Name: "Widget", UnitPrice: decimal.RequireFromString("10.25"), Quantity: intPtr(5)})
	require.NoError(t, err)
	_, err = b.CreateTransaction(ctx, ledger.TransactionInput{
		Description: "Sale", Amount: decimal.NewFromInt(40), Type: ledger.Revenue,
		InvID: widget.ID, InvQty: 2, PaymentMethod: ledger.Credit, Customer: "Bea",
	})
	require.NoError(t, err)
	require.NoError(t, b.UpdateSettings(ctx, ledger.Settings{BusinessName: "Corner Shop", Theme: "dark"}))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	b2, err := ledger.Open(ctx, reopened)
	require.NoError(t, err)

	items := b2.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("10.25")))
	require.Len(t, b2.Receivables(), 1)
	assert.Equal(t, "Bea", b2.Receivables()[0].Party)
	assert.Len(t, b2.AuditLog(), 1)
	assert.Equal(t, "Corner Shop", b2.Settings().BusinessName)
	txns := b2.Transactions()
	require.Len(t, txns, 1)
	assert.True(t, txns[0].InvCost.Equal(decimal.RequireFromString("20.5")))
}

func TestLoadRejectsOtherVersion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, s.Save(ctx, &ledger.Snapshot{Version: ledger.SchemaVersion}))
	require.NoError(t, s.db.Exec("update snapshot_meta set schema_version = 7").Error)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ledger.ErrSchemaMismatch)
}

func TestLoadRejectsPartialSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, s.Save(ctx, &ledger.Snapshot{Version: ledger.SchemaVersion}))
	require.NoError(t, s.db.Exec("delete from documents where doc_key = ?", ledger.KeySales).Error)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrMissingDocument)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, s.Save(ctx, &ledger.Snapshot{Version: ledger.SchemaVersion}))
	require.NoError(t, s.db.Exec("update documents set body = ? where doc_key = ?", "{not json", ledger.KeyInventory).Error)

	_, err := s.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ledger.KeyInventory)
}

func TestLegacyDocumentsAreReset(t *testing.T) {
	ctx := context.Background()
	s, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Bring the schema to the layout an unversioned writer used.
	early := fstest.MapFS{}
	for _, name := range []string{"0001_documents.up.sql", "0002_snapshot_meta.up.sql"} {
		data, err := fs.ReadFile(Migrations(), name)
		require.NoError(t, err)
		early[name] = &fstest.MapFile{Data: data}
	}
	sqlDB, err := s.DB()
	require.NoError(t, err)
	_, err = migrate.NewManager(sqlDB, early, nil).Up(ctx)
	require.NoError(t, err)
	require.NoError(t, s.db.Exec("insert into documents(doc_key, body) values (?, ?)", ledger.KeyTransactions, "[]").Error)

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ledger.ErrSchemaMismatch)

	applied, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0003_reset_legacy_documents.up.sql"}, applied)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.SchemaVersion, snap.Version)
	assert.Empty(t, snap.Transactions)
}

func intPtr(n int) *int { return &n }
