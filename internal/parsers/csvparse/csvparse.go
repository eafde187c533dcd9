// Package csvparse parses delimited statement exports: separator and header
// detection, column mapping (explicit template or inferred by header
// synonyms), field normalization, and per-row error collection. One bad row
// never aborts the batch.
package csvparse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/guiplbarros-ai/extrato/internal/classify"
	"github.com/guiplbarros-ai/extrato/internal/detect"
	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
	"github.com/guiplbarros-ai/extrato/internal/parser"
	"github.com/guiplbarros-ai/extrato/internal/template"
)

// sampleSize caps how many lines dialect detection looks at.
const sampleSize = 50

// Parser implements CSV statement parsing with a stateless design. Each call
// operates solely on the input provided, so the shared instance is safe for
// concurrent use.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared CSV parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier.
func (p *Parser) Name() string {
	return "csv"
}

// CanParse checks if this parser can handle the file.
func (p *Parser) CanParse(filename string, header []byte) bool {
	return detect.DetectFormat(filename, header) == detect.FormatCSV
}

// Parse extracts transactions from decoded CSV content.
func (p *Parser) Parse(ctx context.Context, r io.Reader, opts parser.Options) (*parser.Batch, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content: %w", err)
	}

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lines := strings.Split(content, "\n")

	sep := p.separator(lines, opts)
	mapping, dataStart, err := p.resolveMapping(lines, sep, opts)
	if err != nil {
		return nil, err
	}

	if dataStart > len(lines)+1 {
		dataStart = len(lines) + 1
	}
	rows, batch := p.readRecords(lines[dataStart-1:], dataStart, sep)
	if err := p.parseRows(ctx, rows, mapping, opts, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (p *Parser) separator(lines []string, opts parser.Options) rune {
	if opts.Mapping != nil && opts.Mapping.Separator != 0 {
		return opts.Mapping.Separator
	}
	if opts.Template != nil {
		if sep := opts.Template.SeparatorRune(); sep != 0 {
			return sep
		}
	}
	sample := lines
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	return detect.DetectSeparator(sample)
}

// resolveMapping produces the column mapping and the 1-based line where data
// rows begin. Index-only templates and headerless mappings never consult
// header detection, so the first data row cannot be mistaken for a header;
// name-based resolution requires a header row and fails with ErrNoHeaderRow
// otherwise.
func (p *Parser) resolveMapping(lines []string, sep rune, opts parser.Options) (*template.ColumnMapping, int, error) {
	if opts.Mapping != nil {
		if err := opts.Mapping.Validate(); err != nil {
			return nil, 0, err
		}
		switch {
		case opts.Mapping.HeaderRow > 0:
			return opts.Mapping, opts.Mapping.HeaderRow + 1, nil
		case opts.Mapping.HeaderRow == template.HeaderRowNone:
			// Headerless file: data starts at the top.
			return opts.Mapping, 1, nil
		}
		if headerIdx, found := detect.DetectHeaderRow(lines, sep); found {
			return opts.Mapping, headerIdx + 2, nil
		}
		return opts.Mapping, 1, nil
	}

	if opts.Template != nil {
		if opts.Template.IndexOnly() {
			mapping, err := opts.Template.Resolve(nil)
			if err != nil {
				return nil, 0, err
			}
			return mapping, 1, nil
		}
		headerIdx, found := detect.DetectHeaderRow(lines, sep)
		if !found {
			return nil, 0, fmt.Errorf("%w: template %q needs a header row", detect.ErrNoHeaderRow, opts.Template.Name)
		}
		mapping, err := opts.Template.Resolve(splitHeader(lines[headerIdx], sep))
		if err != nil {
			return nil, 0, err
		}
		return mapping, headerIdx + 2, nil
	}

	headerIdx, found := detect.DetectHeaderRow(lines, sep)
	if !found {
		return nil, 0, fmt.Errorf("%w: cannot infer columns", detect.ErrNoHeaderRow)
	}
	mapping, err := template.InferMapping(splitHeader(lines[headerIdx], sep))
	if err != nil {
		return nil, 0, err
	}
	return mapping, headerIdx + 2, nil
}

func splitHeader(line string, sep rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	cells, err := r.Read()
	if err != nil {
		cells = strings.Split(line, string(sep))
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

type row struct {
	line  int
	cells []string
}

type rowResult struct {
	txn  domain.ParsedTransaction
	perr *domain.ParseError
	skip bool
}

// readRecords reads the data region with RFC4180 quoting honored, so the
// detected separator inside quoted fields does not split cells. Unreadable
// records become ParseErrors immediately; readable ones are returned for
// field parsing.
func (p *Parser) readRecords(dataLines []string, dataStart int, sep rune) ([]row, *parser.Batch) {
	batch := &parser.Batch{}
	reader := csv.NewReader(strings.NewReader(strings.Join(dataLines, "\n")))
	reader.Comma = sep
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows []row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := dataStart
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = dataStart + pe.Line - 1
			}
			batch.Errors = append(batch.Errors, domain.ParseError{
				Line:    line,
				Message: fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}
		relLine, _ := reader.FieldPos(0)
		rows = append(rows, row{line: dataStart + relLine - 1, cells: record})
	}
	return rows, batch
}

// parseRows normalizes rows concurrently. Each row depends only on its own
// text, so rows are parsed by a bounded worker pool and reassembled in
// source order.
func (p *Parser) parseRows(ctx context.Context, rows []row, mapping *template.ColumnMapping, opts parser.Options, batch *parser.Batch) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(rows) {
		workers = len(rows)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]rowResult, len(rows))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = parseRecord(rows[i].cells, rows[i].line, mapping, opts)
			}
		}()
	}

	var cancelled error
dispatch:
	for i := range rows {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return cancelled
	}

	for _, res := range results {
		switch {
		case res.skip:
		case res.perr != nil:
			batch.Errors = append(batch.Errors, *res.perr)
		default:
			batch.Transactions = append(batch.Transactions, res.txn)
		}
	}
	return nil
}

func parseRecord(cells []string, line int, m *template.ColumnMapping, opts parser.Options) rowResult {
	if isBlank(cells) {
		return rowResult{skip: true}
	}

	fail := func(field, message, raw string) rowResult {
		return rowResult{perr: &domain.ParseError{
			Line: line, Field: field, Message: message, RawValue: raw,
		}}
	}

	rawDate, ok := fieldValue(cells, m, template.FieldDate)
	if !ok {
		return fail("date", "date column out of range", "")
	}
	date, ok := normalize.Date(rawDate, m.DateHint)
	if !ok {
		return fail("date", "unparseable date", rawDate)
	}

	rawDesc, ok := fieldValue(cells, m, template.FieldDescription)
	if !ok {
		return fail("description", "description column out of range", "")
	}
	desc := normalize.Description(rawDesc, opts.Description)
	if opts.StripPrefixes {
		desc = normalize.StripKnownPrefixes(desc)
	}
	if desc == "" {
		return fail("description", "description is empty", rawDesc)
	}

	amount, res := parseAmount(cells, line, m)
	if res != nil {
		return rowResult{perr: res}
	}

	txn := domain.ParsedTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		SourceLine:  line,
	}

	var hint string
	if raw, ok := fieldValue(cells, m, template.FieldType); ok {
		hint = raw
	}
	txn.Kind = classify.Infer(desc, amount, hint)

	if raw, ok := fieldValue(cells, m, template.FieldBalance); ok && raw != "" {
		if bal, ok := normalize.Amount(raw); ok {
			txn.RunningBalance = &bal
		}
	}
	if raw, ok := fieldValue(cells, m, template.FieldDocumentID); ok {
		txn.DocumentID = strings.TrimSpace(raw)
	}
	if raw, ok := fieldValue(cells, m, template.FieldCategory); ok {
		txn.Category = strings.TrimSpace(raw)
	}
	if raw, ok := fieldValue(cells, m, template.FieldNotes); ok {
		txn.Notes = normalize.Description(raw, normalize.Options{})
	}
	if raw, ok := fieldValue(cells, m, template.FieldForeignAmount); ok && strings.TrimSpace(raw) != "" {
		if fa, ok := normalize.Amount(raw); ok {
			txn.ForeignAmount = &fa
		}
	}
	if raw, ok := fieldValue(cells, m, template.FieldForeignCurrency); ok {
		txn.ForeignCurrency = strings.ToUpper(strings.TrimSpace(raw))
	}

	return rowResult{txn: txn}
}

// parseAmount resolves the signed amount from a single column or a
// credit/debit pair. With a pair, debit magnitude counts as outflow whether
// the bank exports it signed or not.
func parseAmount(cells []string, line int, m *template.ColumnMapping) (decimal.Decimal, *domain.ParseError) {
	fail := func(field, message, raw string) *domain.ParseError {
		return &domain.ParseError{Line: line, Field: field, Message: message, RawValue: raw}
	}

	if _, ok := m.Column(template.FieldAmount); ok {
		raw, ok := fieldValue(cells, m, template.FieldAmount)
		if !ok {
			return decimal.Decimal{}, fail("amount", "amount column out of range", "")
		}
		amount, ok := normalize.Amount(raw)
		if !ok {
			return decimal.Decimal{}, fail("amount", "unparseable amount", raw)
		}
		return amount, nil
	}

	rawCredit, okCredit := fieldValue(cells, m, template.FieldCredit)
	rawDebit, okDebit := fieldValue(cells, m, template.FieldDebit)
	if !okCredit || !okDebit {
		return decimal.Decimal{}, fail("amount", "credit/debit columns out of range", "")
	}

	credit := decimal.Zero
	if strings.TrimSpace(rawCredit) != "" {
		var ok bool
		credit, ok = normalize.Amount(rawCredit)
		if !ok {
			return decimal.Decimal{}, fail("credit", "unparseable credit", rawCredit)
		}
	}
	debit := decimal.Zero
	if strings.TrimSpace(rawDebit) != "" {
		var ok bool
		debit, ok = normalize.Amount(rawDebit)
		if !ok {
			return decimal.Decimal{}, fail("debit", "unparseable debit", rawDebit)
		}
	}
	if strings.TrimSpace(rawCredit) == "" && strings.TrimSpace(rawDebit) == "" {
		return decimal.Decimal{}, fail("amount", "both credit and debit are empty", "")
	}

	return credit.Sub(debit.Abs()).Round(2), nil
}

func fieldValue(cells []string, m *template.ColumnMapping, f template.Field) (string, bool) {
	idx, ok := m.Column(f)
	if !ok {
		return "", false
	}
	if idx < 0 || idx >= len(cells) {
		return "", false
	}
	return cells[idx], true
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
