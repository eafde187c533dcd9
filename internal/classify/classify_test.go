package classify

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/guiplbarros-ai/extrato/internal/domain"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name        string
		description string
		amount      string
		hint        string
		want        domain.Kind
	}{
		// Explicit hints win, independent of amount sign.
		{"ofx debit", "SALARY", "100.00", "DEBIT", domain.KindExpense},
		{"ofx credit", "FEE", "-10.00", "CREDIT", domain.KindIncome},
		{"ofx xfer", "WHATEVER", "-10.00", "XFER", domain.KindTransfer},
		{"pt debito", "COMPRA", "50.00", "Débito", domain.KindExpense},
		{"pt credito", "DEPOSITO", "-50.00", "Crédito", domain.KindIncome},
		{"estorno hint", "COMPRA", "50.00", "ESTORNO", domain.KindReversal},

		// Unrecognizable hints fall through to heuristics.
		{"unknown hint negative", "MERCADO", "-30.00", "WEIRD", domain.KindExpense},
		{"unknown hint positive", "MERCADO", "30.00", "WEIRD", domain.KindIncome},

		// Keyword heuristics.
		{"ted keyword", "TED EMPRESA XYZ", "-500.00", "", domain.KindTransfer},
		{"pix keyword", "PIX RECEBIDO JOAO", "120.00", "", domain.KindTransfer},
		{"doc keyword", "DOC ENVIADO", "-75.00", "", domain.KindTransfer},
		{"transferencia accented", "Transferência enviada", "-75.00", "", domain.KindTransfer},
		{"estorno keyword", "ESTORNO COMPRA NETFLIX", "39.90", "", domain.KindReversal},
		{"ted inside word ignored", "ATENDIMENTO LOJA", "-10.00", "", domain.KindExpense},
		{"pix inside word ignored", "PIXEL STORE", "-10.00", "", domain.KindExpense},

		// Sign fallback.
		{"negative is expense", "UBER TRIP", "-50.00", "", domain.KindExpense},
		{"positive is income", "SALARIO", "5000.00", "", domain.KindIncome},
		{"zero is income", "AJUSTE", "0.00", "", domain.KindIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.description, amt(tt.amount), tt.hint)
			if got != tt.want {
				t.Errorf("Infer(%q, %s, %q) = %v, want %v",
					tt.description, tt.amount, tt.hint, got, tt.want)
			}
		})
	}
}

func TestFromHint(t *testing.T) {
	if _, ok := FromHint(""); ok {
		t.Error("FromHint(\"\") should not resolve")
	}
	if _, ok := FromHint("NONSENSE"); ok {
		t.Error("FromHint(NONSENSE) should not resolve")
	}
	if k, ok := FromHint("  debit  "); !ok || k != domain.KindExpense {
		t.Errorf("FromHint(debit) = %v, %v", k, ok)
	}
}
