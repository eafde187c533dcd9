// Package domain defines the canonical transaction types shared by the
// import pipeline: parsed rows, per-row errors, fingerprinted canonical
// records, and the import result summary.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a statement line. It is a best-effort inference; downstream
// consumers may recategorize later.
// Use ValidateKind to ensure validity before use.
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
	KindReversal Kind = "reversal"
)

var validKinds = map[Kind]struct{}{
	KindIncome: {}, KindExpense: {}, KindTransfer: {}, KindReversal: {},
}

// ValidateKind checks if kind is valid
func ValidateKind(k Kind) bool {
	_, ok := validKinds[k]
	return ok
}

// ParsedTransaction is one statement line after normalization, before dedup.
//
// Sign convention:
//
//	Positive = inflow (deposits, refunds, salary)
//	Negative = outflow (purchases, fees, withdrawals)
//
// Parsers must normalize to this convention regardless of how the source file
// represents the amount (separate credit/debit columns, accounting
// parentheses, type column).
type ParsedTransaction struct {
	Date        time.Time       // calendar date, time-of-day always zero
	Description string          // normalized text
	Amount      decimal.Decimal // signed, exactly 2 fraction digits
	Kind        Kind

	// Optional fields, zero values when the source file has no column for them.
	DocumentID      string
	RunningBalance  *decimal.Decimal
	ForeignAmount   *decimal.Decimal
	ForeignCurrency string
	Category        string
	Notes           string

	// SourceLine is the 1-based line (CSV) or record block (OFX) in the
	// source file, kept for error reporting.
	SourceLine int
}

// ParseError is a per-row failure. Collected, never thrown: a batch with
// errors on some lines still yields valid transactions for the rest.
type ParseError struct {
	Line     int    `json:"line"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	RawValue string `json:"rawValue,omitempty"`
}

// Error implements the error interface so ParseErrors can be logged directly.
func (e ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d: ", e.Line)
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.RawValue != "" {
		fmt.Fprintf(&b, " (%q)", e.RawValue)
	}
	return b.String()
}

// CanonicalTransaction is a parsed, normalized, classified, fingerprinted
// record ready for persistence.
type CanonicalTransaction struct {
	ID          string
	Fingerprint string // hex SHA-256 content hash, dedup identity
	ParsedTransaction
}

// NewCanonical wraps a parsed transaction with a fresh ID and its fingerprint.
func NewCanonical(txn ParsedTransaction, fingerprint string) (CanonicalTransaction, error) {
	if fingerprint == "" {
		return CanonicalTransaction{}, fmt.Errorf("fingerprint cannot be empty")
	}
	if txn.Date.IsZero() {
		return CanonicalTransaction{}, fmt.Errorf("transaction date cannot be zero")
	}
	return CanonicalTransaction{
		ID:                uuid.NewString(),
		Fingerprint:       fingerprint,
		ParsedTransaction: txn,
	}, nil
}

// ImportResult summarizes one import call.
type ImportResult struct {
	Total    int
	Accepted []CanonicalTransaction

	// IntraBatchDuplicates counts rows dropped because an earlier row in the
	// same batch had the same fingerprint. StoreDuplicates counts rows whose
	// fingerprint was already persisted for the destination account.
	IntraBatchDuplicates int
	StoreDuplicates      int

	Errors []ParseError
}

// Duplicates returns the combined duplicate count.
func (r *ImportResult) Duplicates() int {
	return r.IntraBatchDuplicates + r.StoreDuplicates
}

// Validate checks the accounting invariant every import must uphold:
// accepted + duplicates + errors == total.
func (r *ImportResult) Validate() error {
	sum := len(r.Accepted) + r.Duplicates() + len(r.Errors)
	if sum != r.Total {
		return fmt.Errorf("import result does not balance: accepted %d + duplicates %d + errors %d != total %d",
			len(r.Accepted), r.Duplicates(), len(r.Errors), r.Total)
	}
	return nil
}

// Summary renders the one-line report shown to the user.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("%d rows: %d accepted, %d duplicates, %d errors",
		r.Total, len(r.Accepted), r.Duplicates(), len(r.Errors))
}
