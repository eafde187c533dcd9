// Package parser defines the strategy interface all statement parsers
// implement and the batch type they produce.
package parser

import (
	"context"
	"io"

	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
	"github.com/guiplbarros-ai/extrato/internal/template"
)

// Parser is the strategy interface for all file format parsers.
type Parser interface {
	// Name returns the parser identifier (e.g. "csv", "ofx").
	Name() string

	// CanParse checks if this parser should be used for the file, based on
	// the filename and a raw header sample.
	CanParse(filename string, header []byte) bool

	// Parse extracts transactions from decoded file content. Per-row
	// failures are collected into the batch; only fatal conditions (no
	// header row, unresolvable columns, unreadable input) return an error.
	Parse(ctx context.Context, r io.Reader, opts Options) (*Batch, error)
}

// Options carries per-call parser configuration.
type Options struct {
	// Template is a named bank dialect to resolve against the file's header
	// row. Takes precedence over inference; Mapping takes precedence over
	// both.
	Template *template.Template

	// Mapping is an explicit, fully resolved column mapping. Nil means
	// resolve the Template or infer from the header row.
	Mapping *template.ColumnMapping

	// Description configures description normalization for all rows.
	Description normalize.Options

	// StripPrefixes removes known bank boilerplate prefixes ("COMPRA
	// CARTAO", "PIX", ...) from descriptions.
	StripPrefixes bool

	// Workers bounds concurrent row parsing. Zero means one worker per CPU.
	Workers int
}

// Batch is the outcome of parsing one file: the rows that parsed plus the
// per-row errors for the rows that did not. One bad row never aborts the
// batch.
type Batch struct {
	Transactions []domain.ParsedTransaction
	Errors       []domain.ParseError
}

// Total is the number of source rows the batch accounts for.
func (b *Batch) Total() int {
	return len(b.Transactions) + len(b.Errors)
}
