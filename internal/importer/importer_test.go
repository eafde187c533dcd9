package importer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiplbarros-ai/extrato/internal/detect"
	"github.com/guiplbarros-ai/extrato/internal/registry"
	"github.com/guiplbarros-ai/extrato/internal/store"
)

const csvStatement = "Data;Descrição;Valor\n" +
	"01/08/2026;PADARIA DA ESQUINA;-25,50\n" +
	"02/08/2026;MERCADO CENTRAL;-80,00\n" +
	"03/08/2026;SALARIO MENSAL;5.000,00\n"

func newTestImporter() (*Importer, *store.Memory) {
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(registry.New(), mem, logger), mem
}

func runImport(t *testing.T, imp *Importer, content string, opts Options) *importResult {
	t.Helper()
	res, err := imp.Import(context.Background(), strings.NewReader(content), opts)
	require.NoError(t, err)
	return &importResult{res.Total, len(res.Accepted), res.IntraBatchDuplicates, res.StoreDuplicates, len(res.Errors)}
}

type importResult struct {
	total, accepted, intra, storeDup, errs int
}

func TestImport_FirstRun(t *testing.T) {
	imp, mem := newTestImporter()

	got := runImport(t, imp, csvStatement, Options{AccountID: "acc-1", Filename: "extrato.csv"})

	assert.Equal(t, &importResult{total: 3, accepted: 3}, got)
	assert.Equal(t, 3, mem.Count("acc-1"))
}

func TestImport_Idempotent(t *testing.T) {
	imp, mem := newTestImporter()
	opts := Options{AccountID: "acc-1", Filename: "extrato.csv"}

	runImport(t, imp, csvStatement, opts)
	second := runImport(t, imp, csvStatement, opts)

	assert.Equal(t, &importResult{total: 3, storeDup: 3}, second,
		"re-importing the same file must accept nothing")
	assert.Equal(t, 3, mem.Count("acc-1"))
}

func TestImport_AccountIsolation(t *testing.T) {
	imp, mem := newTestImporter()

	runImport(t, imp, csvStatement, Options{AccountID: "acc-1", Filename: "extrato.csv"})
	other := runImport(t, imp, csvStatement, Options{AccountID: "acc-2", Filename: "extrato.csv"})

	assert.Equal(t, &importResult{total: 3, accepted: 3}, other,
		"identical rows on another account are not duplicates")
	assert.Equal(t, 3, mem.Count("acc-1"))
	assert.Equal(t, 3, mem.Count("acc-2"))
}

func TestImport_IntraBatchDuplicates(t *testing.T) {
	content := "Data;Descrição;Valor\n" +
		"01/08/2026;UBER TRIP;-18,90\n" +
		"01/08/2026;UBER TRIP;-18,90\n" +
		"02/08/2026;UBER TRIP;-18,90\n"
	imp, mem := newTestImporter()

	got := runImport(t, imp, content, Options{AccountID: "acc-1", Filename: "extrato.csv"})

	assert.Equal(t, &importResult{total: 3, accepted: 2, intra: 1}, got)
	assert.Equal(t, 2, mem.Count("acc-1"))
}

func TestImport_DryRun(t *testing.T) {
	imp, mem := newTestImporter()

	got := runImport(t, imp, csvStatement, Options{AccountID: "acc-1", Filename: "extrato.csv", DryRun: true})

	assert.Equal(t, &importResult{total: 3, accepted: 3}, got)
	assert.Equal(t, 0, mem.Count("acc-1"), "dry run must not persist")

	// A later real run sees no duplicates from the dry run.
	second := runImport(t, imp, csvStatement, Options{AccountID: "acc-1", Filename: "extrato.csv"})
	assert.Equal(t, &importResult{total: 3, accepted: 3}, second)
}

func TestImport_RowErrorsCarried(t *testing.T) {
	content := "Data;Descrição;Valor\n" +
		"01/08/2026;LOJA A;-10,00\n" +
		"31/02/2026;LOJA B;-20,00\n" +
		"03/08/2026;LOJA C;-30,00\n" +
		"04/08/2026;LOJA D;-40,00\n"
	imp, _ := newTestImporter()

	got := runImport(t, imp, content, Options{AccountID: "acc-1", Filename: "extrato.csv"})

	assert.Equal(t, &importResult{total: 4, accepted: 3, errs: 1}, got)
}

func TestImport_FormatOverride(t *testing.T) {
	// .dat extension defeats sniffing; the explicit format reaches the CSV
	// parser anyway.
	imp, _ := newTestImporter()

	got := runImport(t, imp, csvStatement, Options{AccountID: "acc-1", Filename: "extrato.dat", Format: "csv"})
	assert.Equal(t, 3, got.accepted)

	_, err := imp.Import(context.Background(), strings.NewReader(csvStatement),
		Options{AccountID: "acc-1", Filename: "extrato.dat"})
	assert.Error(t, err, "no parser should claim an unknown extension without markers")
}

func TestImport_OFXStatement(t *testing.T) {
	content := "<OFX>\n" +
		"<STMTTRN>\n<TRNTYPE>DEBIT\n<DTPOSTED>20260815\n<TRNAMT>-150.00\n<FITID>F1\n<MEMO>CONTA DE LUZ\n</STMTTRN>\n" +
		"<STMTTRN>\n<TRNTYPE>CREDIT\n<DTPOSTED>20260816\n<TRNAMT>3200.50\n<FITID>F2\n<MEMO>TED RECEBIDA\n</STMTTRN>\n" +
		"</OFX>\n"
	imp, mem := newTestImporter()

	got := runImport(t, imp, content, Options{AccountID: "acc-1", Filename: "extrato.ofx"})

	assert.Equal(t, &importResult{total: 2, accepted: 2}, got)
	assert.Equal(t, 2, mem.Count("acc-1"))
}

func TestImport_Latin1Charset(t *testing.T) {
	// "Descrição" and "CARTÃO" encoded as ISO-8859-1.
	content := "Data;Descri\xe7\xe3o;Valor\n" +
		"01/08/2026;CART\xc3O LOJA;-10,00\n" +
		"02/08/2026;LOJA B;-20,00\n" +
		"03/08/2026;LOJA C;-30,00\n"
	imp, _ := newTestImporter()

	got := runImport(t, imp, content, Options{AccountID: "acc-1", Filename: "extrato.csv", Charset: "iso-8859-1"})
	assert.Equal(t, 3, got.accepted)
}

func TestImport_FatalErrors(t *testing.T) {
	imp, _ := newTestImporter()
	ctx := context.Background()

	_, err := imp.Import(ctx, strings.NewReader(csvStatement), Options{Filename: "extrato.csv"})
	assert.Error(t, err, "missing account ID")

	_, err = imp.Import(ctx, strings.NewReader("texto solto\nsem estrutura\n"),
		Options{AccountID: "acc-1", Filename: "extrato.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, detect.ErrNoHeaderRow)
}
