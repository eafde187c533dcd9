package normalize

import (
	"testing"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "br thousands", input: "1.234,56", want: "1234.56", ok: true},
		{name: "us thousands", input: "1,234.56", want: "1234.56", ok: true},
		{name: "accounting parentheses", input: "(150,00)", want: "-150", ok: true},
		{name: "currency and sign", input: "R$ -1.234,56", want: "-1234.56", ok: true},
		{name: "plain comma decimal", input: "1234,56", want: "1234.56", ok: true},
		{name: "plain dot decimal", input: "1234.56", want: "1234.56", ok: true},
		{name: "lone dot is decimal separator", input: "1.234", want: "1.23", ok: true},
		{name: "lone comma is decimal separator", input: "1,234", want: "1.23", ok: true},
		{name: "dollar symbol", input: "$99.90", want: "99.9", ok: true},
		{name: "euro word", input: "12,50 EUR", want: "12.5", ok: true},
		{name: "usd word", input: "USD 40.00", want: "40", ok: true},
		{name: "pound symbol", input: "£5.00", want: "5", ok: true},
		{name: "leading plus", input: "+120,00", want: "120", ok: true},
		{name: "internal whitespace", input: "1 234,56", want: "1234.56", ok: true},
		{name: "nbsp", input: "R$ 150,00", want: "150", ok: true},
		{name: "zero", input: "0,00", want: "0", ok: true},
		{name: "negative dot decimal", input: "-50.00", want: "-50", ok: true},
		{name: "repeated dots last is decimal", input: "1.234.567,89", want: "1234567.89", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "just currency", input: "R$", ok: false},
		{name: "letters", input: "abc", ok: false},
		{name: "mixed junk", input: "12x34", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Amount(tt.input)
			if ok != tt.ok {
				t.Fatalf("Amount(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.String() != tt.want {
				t.Errorf("Amount(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestAmount_TwoFractionDigits(t *testing.T) {
	got, ok := Amount("39.9")
	if !ok {
		t.Fatal("Amount() failed")
	}
	if got.StringFixed(2) != "39.90" {
		t.Errorf("StringFixed(2) = %s, want 39.90", got.StringFixed(2))
	}

	got, ok = Amount("123.456")
	if !ok {
		t.Fatal("Amount() failed")
	}
	if got.StringFixed(2) != "123.46" {
		t.Errorf("Amount(123.456) rounded = %s, want 123.46", got.StringFixed(2))
	}
}
