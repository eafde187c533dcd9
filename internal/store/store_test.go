package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/fingerprint"
)

func testTxn(t *testing.T, desc string, amount string, day int) domain.CanonicalTransaction {
	t.Helper()
	parsed := domain.ParsedTransaction{
		Date:        time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Kind:        domain.KindExpense,
	}
	txn, err := domain.NewCanonical(parsed, fingerprint.ForTransaction(parsed))
	require.NoError(t, err)
	return txn
}

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "extrato.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_PersistAndFingerprints(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	batch := []domain.CanonicalTransaction{
		testTxn(t, "PADARIA", "-25.50", 1),
		testTxn(t, "MERCADO", "-80.00", 2),
	}
	require.NoError(t, s.Persist(ctx, "acc-1", batch))

	set, err := s.ExistingFingerprints(ctx, "acc-1")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, batch[0].Fingerprint)
	assert.Contains(t, set, batch[1].Fingerprint)

	n, err := s.Count(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_RepersistIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	batch := []domain.CanonicalTransaction{testTxn(t, "NETFLIX", "-39.90", 5)}
	require.NoError(t, s.Persist(ctx, "acc-1", batch))
	require.NoError(t, s.Persist(ctx, "acc-1", batch))

	n, err := s.Count(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "re-persisting the same batch must not duplicate rows")
}

func TestSQLite_AccountIsolation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	txn := testTxn(t, "ASSINATURA", "-19.90", 10)
	require.NoError(t, s.Persist(ctx, "acc-1", []domain.CanonicalTransaction{txn}))

	// Same fingerprint on another account is a distinct transaction.
	other, err := domain.NewCanonical(txn.ParsedTransaction, txn.Fingerprint)
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx, "acc-2", []domain.CanonicalTransaction{other}))

	set1, err := s.ExistingFingerprints(ctx, "acc-1")
	require.NoError(t, err)
	set2, err := s.ExistingFingerprints(ctx, "acc-2")
	require.NoError(t, err)
	assert.Len(t, set1, 1)
	assert.Len(t, set2, 1)

	empty, err := s.ExistingFingerprints(ctx, "acc-3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLite_OptionalFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	bal := decimal.RequireFromString("1789.55")
	parsed := domain.ParsedTransaction{
		Date:            time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		Description:     "COMPRA EXTERIOR",
		Amount:          decimal.RequireFromString("-545.20"),
		Kind:            domain.KindExpense,
		DocumentID:      "DOC-42",
		RunningBalance:  &bal,
		ForeignCurrency: "USD",
	}
	txn, err := domain.NewCanonical(parsed, fingerprint.ForTransaction(parsed))
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx, "acc-1", []domain.CanonicalTransaction{txn}))

	n, err := s.Count(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	batch := []domain.CanonicalTransaction{
		testTxn(t, "PADARIA", "-25.50", 1),
		testTxn(t, "MERCADO", "-80.00", 2),
	}
	require.NoError(t, m.Persist(ctx, "acc-1", batch))
	require.NoError(t, m.Persist(ctx, "acc-1", batch))

	set, err := m.ExistingFingerprints(ctx, "acc-1")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Equal(t, 2, m.Count("acc-1"))
	assert.Equal(t, 0, m.Count("acc-2"))
}
