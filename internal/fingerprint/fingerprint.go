// Package fingerprint derives the content identity used for deduplication:
// a SHA-256 hash over the normalized date, description, and amount.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guiplbarros-ai/extrato/internal/domain"
)

// Compute creates the SHA-256 fingerprint of a transaction.
// Format: SHA256("{ISO date}|{description}|{amount}").
// The description is trimmed and upper-cased and the amount is formatted
// with exactly two decimal places, so cosmetic differences in the source
// file ("39.9" vs "39.90", "  netflix ") produce the same identity.
func Compute(date time.Time, description string, amount decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(date.Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(strings.TrimSpace(description)))
	b.WriteByte('|')
	b.WriteString(amount.StringFixed(2))

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// ForTransaction computes the fingerprint of a parsed transaction.
func ForTransaction(txn domain.ParsedTransaction) string {
	return Compute(txn.Date, txn.Description, txn.Amount)
}
