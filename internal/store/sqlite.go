package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/guiplbarros-ai/extrato/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	account_id       TEXT NOT NULL,
	fingerprint      TEXT NOT NULL,
	date             TEXT NOT NULL,
	description      TEXT NOT NULL,
	amount           TEXT NOT NULL,
	kind             TEXT NOT NULL,
	document_id      TEXT NOT NULL DEFAULT '',
	running_balance  TEXT,
	foreign_amount   TEXT,
	foreign_currency TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	source_line      INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(account_id, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
`

// SQLite persists transactions in a local SQLite database. The driver allows
// one writer at a time, so writes are serialized with a mutex.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and ensures the schema
// exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ExistingFingerprints returns the account's persisted fingerprint set.
func (s *SQLite) ExistingFingerprints(ctx context.Context, accountID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints for account %s: %w", accountID, err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		set[fp] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fingerprints: %w", err)
	}
	return set, nil
}

// Persist writes the batch inside a single transaction. INSERT OR IGNORE
// plus the (account_id, fingerprint) unique constraint makes re-running the
// same batch a no-op.
func (s *SQLite) Persist(ctx context.Context, accountID string, txns []domain.CanonicalTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(id, account_id, fingerprint, date, description, amount, kind,
			 document_id, running_balance, foreign_amount, foreign_currency,
			 category, notes, source_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, txn := range txns {
		_, err := stmt.ExecContext(ctx,
			txn.ID,
			accountID,
			txn.Fingerprint,
			txn.Date.Format("2006-01-02"),
			txn.Description,
			txn.Amount.String(),
			string(txn.Kind),
			txn.DocumentID,
			nullDecimal(txn.RunningBalance),
			nullDecimal(txn.ForeignAmount),
			txn.ForeignCurrency,
			txn.Category,
			txn.Notes,
			txn.SourceLine,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Count returns how many transactions the account holds.
func (s *SQLite) Count(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions for account %s: %w", accountID, err)
	}
	return n, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
