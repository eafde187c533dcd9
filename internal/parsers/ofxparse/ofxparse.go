// Package ofxparse provides OFX/QFX statement parsing. A strict ofxgo parse
// is attempted first; when the document is malformed SGML, a lenient scanner
// extracts what it can from the STMTTRN blocks so one broken block never
// discards the rest of the statement.
package ofxparse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/guiplbarros-ai/extrato/internal/classify"
	"github.com/guiplbarros-ai/extrato/internal/detect"
	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
	"github.com/guiplbarros-ai/extrato/internal/parser"
)

// Parser implements OFX/QFX parsing with a stateless design. Each method
// operates solely on the input provided, so the shared instance is safe for
// concurrent use.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared OFX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier.
func (p *Parser) Name() string {
	return "ofx"
}

// CanParse checks if this parser can handle the file.
func (p *Parser) CanParse(filename string, header []byte) bool {
	return detect.DetectFormat(filename, header) == detect.FormatOFX
}

// Parse extracts transactions from OFX/QFX content.
func (p *Parser) Parse(ctx context.Context, r io.Reader, opts parser.Options) (*parser.Batch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content: %w", err)
	}

	// ofxgo.ParseResponse does not take a context, so cancellation is only
	// observed between phases.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resp, strictErr := ofxgo.ParseResponse(bytes.NewReader(content))
	if strictErr == nil {
		return p.fromResponse(resp, opts)
	}

	// Banks routinely emit SGML that strict parsing rejects. Fall back to
	// block scanning before giving up.
	batch, lenientErr := p.parseLenient(string(content), opts)
	if lenientErr != nil {
		version := detect.DetectOFXVersion(string(content))
		return nil, fmt.Errorf("failed to parse OFX %s file (%d bytes): %w", version, len(content), strictErr)
	}
	return batch, nil
}

// fromResponse converts a strict ofxgo response. All bank and credit card
// statements in the document contribute transactions; a transaction missing
// a required field becomes a ParseError instead of aborting the batch.
func (p *Parser) fromResponse(resp *ofxgo.Response, opts parser.Options) (*parser.Batch, error) {
	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("no bank or credit card statement found in OFX file (bank: %d, creditcard: %d)",
			len(resp.Bank), len(resp.CreditCard))
	}

	batch := &parser.Batch{}
	ordinal := 0
	for _, list := range lists {
		for _, txn := range list.Transactions {
			ordinal++
			p.appendStrict(batch, txn, ordinal, opts)
		}
	}
	return batch, nil
}

func (p *Parser) appendStrict(batch *parser.Batch, txn ofxgo.Transaction, ordinal int, opts parser.Options) {
	fail := func(field, message, raw string) {
		batch.Errors = append(batch.Errors, domain.ParseError{
			Line: ordinal, Field: field, Message: message, RawValue: raw,
		})
	}

	fitid := strings.TrimSpace(txn.FiTID.String())
	if fitid == "" {
		fail("FITID", "transaction missing required FITID", "")
		return
	}
	if txn.DtPosted.IsZero() {
		fail("DTPOSTED", "transaction missing required DTPOSTED", "")
		return
	}

	amount, ok := amountFromOFX(txn.TrnAmt)
	if !ok {
		fail("TRNAMT", "unparseable TRNAMT", txn.TrnAmt.RatString())
		return
	}

	// Calendar date in the statement's own zone; time of day is discarded.
	y, m, d := txn.DtPosted.Time.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	desc := strings.TrimSpace(txn.Memo.String())
	if desc == "" {
		desc = strings.TrimSpace(txn.Name.String())
	}
	batch.Transactions = append(batch.Transactions, p.build(date, desc, amount, fitid, fmt.Sprint(txn.TrnType), ordinal, opts))
}

// amountFromOFX converts the ofxgo rational amount to a two-decimal value.
// FloatString comes from the embedded big.Rat and rounds to the cent.
func amountFromOFX(amt ofxgo.Amount) (decimal.Decimal, bool) {
	dec, err := decimal.NewFromString(amt.FloatString(2))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return dec, true
}

// build assembles the transaction shared by both parse paths: description
// normalization, a synthesized placeholder when MEMO and NAME are both
// absent, and TRNTYPE-driven classification.
func (p *Parser) build(date time.Time, desc string, amount decimal.Decimal, fitid, trnType string, line int, opts parser.Options) domain.ParsedTransaction {
	desc = normalize.Description(desc, opts.Description)
	if opts.StripPrefixes {
		desc = normalize.StripKnownPrefixes(desc)
	}
	if desc == "" {
		desc = "TRANSACTION " + fitid
	}

	return domain.ParsedTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Kind:        classify.Infer(desc, amount, trnType),
		DocumentID:  fitid,
		SourceLine:  line,
	}
}

// stmtBlock is one STMTTRN element captured by the lenient scanner.
type stmtBlock struct {
	line   int
	fields map[string]string
}

// parseLenient scans SGML/XML line by line for STMTTRN blocks, tolerating
// the unclosed tags of OFX 1.x. It fails only when no block exists at all.
func (p *Parser) parseLenient(content string, opts parser.Options) (*parser.Batch, error) {
	blocks := scanBlocks(content)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no STMTTRN blocks found")
	}

	batch := &parser.Batch{}
	for _, b := range blocks {
		p.appendLenient(batch, b, opts)
	}
	return batch, nil
}

func scanBlocks(content string) []stmtBlock {
	var blocks []stmtBlock
	var current *stmtBlock

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "<STMTTRN>"):
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &stmtBlock{line: i + 1, fields: make(map[string]string)}
		case strings.HasPrefix(upper, "</STMTTRN>"):
			if current != nil {
				blocks = append(blocks, *current)
				current = nil
			}
		default:
			if current == nil {
				continue
			}
			tag, value, ok := splitTag(line)
			if ok {
				current.fields[tag] = value
			}
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

// splitTag parses "<TAG>value" and "<TAG>value</TAG>" lines.
func splitTag(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "<") || strings.HasPrefix(line, "</") {
		return "", "", false
	}
	end := strings.IndexByte(line, '>')
	if end < 2 {
		return "", "", false
	}
	tag := strings.ToUpper(line[1:end])
	value := line[end+1:]
	if close := strings.IndexByte(value, '<'); close >= 0 {
		value = value[:close]
	}
	return tag, strings.TrimSpace(value), true
}

func (p *Parser) appendLenient(batch *parser.Batch, b stmtBlock, opts parser.Options) {
	fail := func(field, message, raw string) {
		batch.Errors = append(batch.Errors, domain.ParseError{
			Line: b.line, Field: field, Message: message, RawValue: raw,
		})
	}

	fitid := b.fields["FITID"]
	if fitid == "" {
		fail("FITID", "STMTTRN block missing required FITID", "")
		return
	}

	rawDate := b.fields["DTPOSTED"]
	if rawDate == "" {
		fail("DTPOSTED", "STMTTRN block missing required DTPOSTED", "")
		return
	}
	date, ok := parseOFXDate(rawDate)
	if !ok {
		fail("DTPOSTED", "unparseable DTPOSTED", rawDate)
		return
	}

	rawAmount := b.fields["TRNAMT"]
	if rawAmount == "" {
		fail("TRNAMT", "STMTTRN block missing required TRNAMT", "")
		return
	}
	amount, ok := normalize.Amount(rawAmount)
	if !ok {
		fail("TRNAMT", "unparseable TRNAMT", rawAmount)
		return
	}

	desc := b.fields["MEMO"]
	if desc == "" {
		desc = b.fields["NAME"]
	}
	batch.Transactions = append(batch.Transactions, p.build(date, desc, amount, fitid, b.fields["TRNTYPE"], b.line, opts))
}

// parseOFXDate keeps only the YYYYMMDD prefix: time of day and timezone
// suffixes like [-3:GMT] are discarded.
func parseOFXDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", raw[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
