// Package template defines column mappings from semantic transaction fields
// to CSV columns. Mappings come from a named bank template (shipped as
// embedded YAML data, so supporting a new bank means adding data, not a code
// path) or are inferred by matching header text against known synonyms.
package template

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guiplbarros-ai/extrato/internal/normalize"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// ErrUnresolvedColumns is returned when the required columns cannot be
// resolved. This is fatal for the file: row processing must not begin.
var ErrUnresolvedColumns = errors.New("required columns could not be resolved")

// Sentinels for ColumnMapping.HeaderRow. The zero value detects, so a bare
// ColumnMapping literal never pins the header to the first line by accident.
const (
	HeaderRowDetect = 0
	HeaderRowNone   = -1
)

// Field names the semantic transaction fields a statement column can map to.
type Field string

const (
	FieldDate            Field = "date"
	FieldDescription     Field = "description"
	FieldAmount          Field = "amount"
	FieldCredit          Field = "credit"
	FieldDebit           Field = "debit"
	FieldBalance         Field = "balance"
	FieldDocumentID      Field = "document_id"
	FieldCategory        Field = "category"
	FieldNotes           Field = "notes"
	FieldForeignAmount   Field = "foreign_amount"
	FieldForeignCurrency Field = "foreign_currency"
	FieldType            Field = "type"
)

var validFields = map[Field]struct{}{
	FieldDate: {}, FieldDescription: {}, FieldAmount: {}, FieldCredit: {},
	FieldDebit: {}, FieldBalance: {}, FieldDocumentID: {}, FieldCategory: {},
	FieldNotes: {}, FieldForeignAmount: {}, FieldForeignCurrency: {}, FieldType: {},
}

// ColumnMapping is a fully resolved mapping from semantic field to a source
// column index.
//
// Invariant: date, description, and (amount OR (credit AND debit)) resolve to
// a valid column; Validate enforces it and the file is rejected before row
// processing otherwise.
type ColumnMapping struct {
	Columns map[Field]int

	// DateHint is an optional explicit date layout tried before the
	// built-in formats.
	DateHint string

	// Separator overrides detection when non-zero.
	Separator rune

	// HeaderRow locates the header: HeaderRowDetect (the zero value)
	// auto-detects, HeaderRowNone declares the file headerless, and n > 0
	// is the 1-based header line.
	HeaderRow int
}

// Column returns the source column index for a field.
func (m *ColumnMapping) Column(f Field) (int, bool) {
	idx, ok := m.Columns[f]
	return idx, ok
}

// HasAmount reports whether the mapping resolves an amount, either as a
// single signed column or as a credit/debit pair.
func (m *ColumnMapping) HasAmount() bool {
	if _, ok := m.Columns[FieldAmount]; ok {
		return true
	}
	_, credit := m.Columns[FieldCredit]
	_, debit := m.Columns[FieldDebit]
	return credit && debit
}

// Validate enforces the required-column invariant.
func (m *ColumnMapping) Validate() error {
	var missing []string
	if _, ok := m.Columns[FieldDate]; !ok {
		missing = append(missing, string(FieldDate))
	}
	if _, ok := m.Columns[FieldDescription]; !ok {
		missing = append(missing, string(FieldDescription))
	}
	if !m.HasAmount() {
		missing = append(missing, "amount or credit+debit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrUnresolvedColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Template is a named bank dialect: separator, date format, and column
// positions or header names.
type Template struct {
	Name       string `yaml:"name"`
	Separator  string `yaml:"separator"`
	DateFormat string `yaml:"date_format"`

	// Columns maps field name to either a 0-based column index ("2") or a
	// header name ("Histórico"). Header names are matched case- and
	// accent-insensitively against the detected header row.
	Columns map[string]string `yaml:"columns"`
}

// templateSet is the top-level YAML structure.
type templateSet struct {
	Templates []Template `yaml:"templates"`
}

// Set holds loaded templates by name.
type Set struct {
	byName map[string]*Template
	names  []string
}

// NewSet parses and validates templates from YAML data.
func NewSet(data []byte) (*Set, error) {
	var ts templateSet
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to parse YAML templates (check syntax, indentation, and field names): %w", err)
	}

	set := &Set{byName: make(map[string]*Template, len(ts.Templates))}
	for i := range ts.Templates {
		tpl := &ts.Templates[i]
		if err := tpl.validate(); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, tpl.Name, err)
		}
		if _, exists := set.byName[tpl.Name]; exists {
			return nil, fmt.Errorf("template %d: duplicate name %q", i, tpl.Name)
		}
		set.byName[tpl.Name] = tpl
		set.names = append(set.names, tpl.Name)
	}
	return set, nil
}

// LoadEmbedded loads the templates shipped with the binary.
func LoadEmbedded() (*Set, error) {
	set, err := NewSet(embeddedTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded templates: %w", err)
	}
	return set, nil
}

// LoadFromFile loads templates from a filesystem path, for banks not shipped
// with the binary.
func LoadFromFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	set, err := NewSet(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates from %q: %w", path, err)
	}
	return set, nil
}

// Get returns the named template.
func (s *Set) Get(name string) (*Template, bool) {
	tpl, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return tpl, ok
}

// Names lists available template names in file order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

func (t *Template) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if t.Name != strings.ToLower(t.Name) {
		return fmt.Errorf("name must be lower case")
	}
	if len(t.Separator) > 1 && t.Separator != "\\t" {
		return fmt.Errorf("separator must be a single character, got %q", t.Separator)
	}
	for field := range t.Columns {
		if _, ok := validFields[Field(field)]; !ok {
			return fmt.Errorf("unknown column field %q", field)
		}
	}
	probe := &ColumnMapping{Columns: make(map[Field]int)}
	for field := range t.Columns {
		probe.Columns[Field(field)] = 0
	}
	if err := probe.Validate(); err != nil {
		return err
	}
	return nil
}

// IndexOnly reports whether every column reference is a numeric index, so
// the template resolves without a header row.
func (t *Template) IndexOnly() bool {
	for _, ref := range t.Columns {
		if _, err := strconv.Atoi(ref); err != nil {
			return false
		}
	}
	return len(t.Columns) > 0
}

// SeparatorRune returns the template separator, or 0 when the template
// leaves it to detection.
func (t *Template) SeparatorRune() rune {
	switch t.Separator {
	case "":
		return 0
	case "\\t":
		return '\t'
	default:
		return []rune(t.Separator)[0]
	}
}

// Resolve turns the template into a concrete ColumnMapping against the
// file's header cells. Index entries are used as-is; name entries are
// matched against headers case- and accent-insensitively.
func (t *Template) Resolve(headers []string) (*ColumnMapping, error) {
	m := &ColumnMapping{
		Columns:   make(map[Field]int, len(t.Columns)),
		DateHint:  t.DateFormat,
		Separator: t.SeparatorRune(),
	}
	if t.IndexOnly() {
		m.HeaderRow = HeaderRowNone
	}

	folded := foldHeaders(headers)
	for field, ref := range t.Columns {
		if idx, err := strconv.Atoi(ref); err == nil {
			if idx < 0 {
				return nil, fmt.Errorf("template %s: negative column index %d for %s", t.Name, idx, field)
			}
			m.Columns[Field(field)] = idx
			continue
		}

		idx, ok := findHeader(folded, ref)
		if !ok {
			return nil, fmt.Errorf("%w: template %s: header %q not found for %s",
				ErrUnresolvedColumns, t.Name, ref, field)
		}
		m.Columns[Field(field)] = idx
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// fieldSynonyms drive header-based inference when no template is given.
// Keys are folded: upper case, accents stripped, whitespace collapsed.
var fieldSynonyms = map[Field][]string{
	FieldDate: {"DATA", "DATE", "DT", "DATA LANCAMENTO", "DATA MOV", "DATA MOVIMENTO", "FECHA"},
	FieldDescription: {
		"DESCRICAO", "HISTORICO", "DESCRIPTION", "LANCAMENTO", "DETALHES",
		"MOVIMENTO", "MEMO", "PAYEE", "ESTABELECIMENTO", "TITLE",
	},
	FieldAmount:          {"VALOR", "AMOUNT", "VALUE", "MONTANTE", "QUANTIA", "VALOR (R$)"},
	FieldCredit:          {"CREDITO", "CREDIT", "ENTRADA", "ENTRADAS", "VALOR CREDITO", "DEPOSITO"},
	FieldDebit:           {"DEBITO", "DEBIT", "SAIDA", "SAIDAS", "VALOR DEBITO", "RETIRADA"},
	FieldBalance:         {"SALDO", "BALANCE", "SALDO (R$)"},
	FieldDocumentID:      {"DOCUMENTO", "DOC", "NUMERO", "NUM DOC", "N DOC", "DOCUMENT", "REFERENCIA", "REF"},
	FieldCategory:        {"CATEGORIA", "CATEGORY"},
	FieldNotes:           {"OBSERVACAO", "OBSERVACOES", "OBS", "NOTES", "NOTA", "ANOTACAO"},
	FieldForeignAmount:   {"VALOR MOEDA ORIGEM", "VALOR ORIGEM", "FOREIGN AMOUNT", "VALOR ESTRANGEIRO"},
	FieldForeignCurrency: {"MOEDA", "MOEDA ORIGEM", "CURRENCY", "FOREIGN CURRENCY"},
	FieldType:            {"TIPO", "TYPE", "TIPO LANCAMENTO", "TRNTYPE", "TIPO TRANSACAO"},
}

// inferenceOrder fixes field precedence so a header like "Documento" is
// claimed by document_id before a later field could take the column.
var inferenceOrder = []Field{
	FieldDate, FieldDescription, FieldAmount, FieldCredit, FieldDebit,
	FieldBalance, FieldDocumentID, FieldCategory, FieldNotes,
	FieldForeignAmount, FieldForeignCurrency, FieldType,
}

// InferMapping matches header cells against known synonyms ("Data"/"Date",
// "Histórico"/"Description") and returns the resolved mapping. Each column
// is claimed at most once. Fails with ErrUnresolvedColumns when the required
// fields are not all present.
func InferMapping(headers []string) (*ColumnMapping, error) {
	folded := foldHeaders(headers)
	claimed := make(map[int]bool, len(headers))

	m := &ColumnMapping{Columns: make(map[Field]int)}
	for _, field := range inferenceOrder {
		for _, syn := range fieldSynonyms[field] {
			idx, ok := findHeaderUnclaimed(folded, syn, claimed)
			if !ok {
				continue
			}
			m.Columns[field] = idx
			claimed[idx] = true
			break
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func foldHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = foldHeader(h)
	}
	return out
}

func foldHeader(h string) string {
	h = strings.Join(strings.Fields(h), " ")
	return strings.ToUpper(normalize.StripAccents(h))
}

func findHeader(folded []string, name string) (int, bool) {
	want := foldHeader(name)
	for i, h := range folded {
		if h == want {
			return i, true
		}
	}
	return 0, false
}

func findHeaderUnclaimed(folded []string, name string, claimed map[int]bool) (int, bool) {
	want := foldHeader(name)
	for i, h := range folded {
		if !claimed[i] && h == want {
			return i, true
		}
	}
	return 0, false
}
