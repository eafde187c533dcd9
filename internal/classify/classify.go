// Package classify infers the transaction kind from explicit type hints,
// description keywords, and finally the amount sign. It is a best-effort
// heuristic, not a guarantee; downstream consumers may recategorize later.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
)

// hintKinds maps recognizable explicit type values (OFX TRNTYPEs and the
// Portuguese labels bank CSVs carry) to a kind. Keys are upper case and
// accent-free. An explicit hint always beats the keyword and sign heuristics;
// in particular TRNTYPE=DEBIT is an expense and TRNTYPE=CREDIT an income
// regardless of amount sign.
var hintKinds = map[string]domain.Kind{
	"DEBIT":         domain.KindExpense,
	"DEBITO":        domain.KindExpense,
	"SAIDA":         domain.KindExpense,
	"ATM":           domain.KindExpense,
	"FEE":           domain.KindExpense,
	"POS":           domain.KindExpense,
	"CHECK":         domain.KindExpense,
	"PAYMENT":       domain.KindExpense,
	"CREDIT":        domain.KindIncome,
	"CREDITO":       domain.KindIncome,
	"ENTRADA":       domain.KindIncome,
	"DEP":           domain.KindIncome,
	"DEPOSIT":       domain.KindIncome,
	"INT":           domain.KindIncome,
	"DIRECTDEP":     domain.KindIncome,
	"XFER":          domain.KindTransfer,
	"TRANSFER":      domain.KindTransfer,
	"TRANSFERENCIA": domain.KindTransfer,
	"ESTORNO":       domain.KindReversal,
	"REVERSAL":      domain.KindReversal,
}

// transferKeywords flag transfers when they appear as words in the
// description.
var transferKeywords = []string{"TRANSFERENCIA", "TED", "DOC", "PIX"}

// reversalKeywords flag reversals/chargebacks.
var reversalKeywords = []string{"ESTORNO"}

// Infer decides the transaction kind. Order of precedence: a recognizable
// explicit hint, then description keywords, then the sign of the amount
// (inflow is income, outflow is expense).
func Infer(description string, amount decimal.Decimal, hint string) domain.Kind {
	if k, ok := FromHint(hint); ok {
		return k
	}

	folded := fold(description)
	for _, kw := range reversalKeywords {
		if containsWord(folded, kw) {
			return domain.KindReversal
		}
	}
	for _, kw := range transferKeywords {
		if containsWord(folded, kw) {
			return domain.KindTransfer
		}
	}

	if amount.Sign() < 0 {
		return domain.KindExpense
	}
	return domain.KindIncome
}

// FromHint resolves an explicit type value if it is recognizable.
func FromHint(hint string) (domain.Kind, bool) {
	hint = fold(hint)
	if hint == "" {
		return "", false
	}
	k, ok := hintKinds[hint]
	return k, ok
}

func fold(s string) string {
	return strings.ToUpper(normalize.StripAccents(strings.TrimSpace(s)))
}

// containsWord reports whether kw appears in folded text as a whole word.
// "TED" must not match inside "ATENDIMENTO".
func containsWord(folded, kw string) bool {
	idx := 0
	for {
		i := strings.Index(folded[idx:], kw)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordRune(folded[i-1])
		afterIdx := i + len(kw)
		after := afterIdx == len(folded) || !isWordRune(folded[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(kw)
	}
}

func isWordRune(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
