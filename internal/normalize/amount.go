package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyTokens are stripped before separator detection. Word tokens are
// matched case-insensitively, symbols anywhere in the string.
var (
	currencySymbols = []string{"R$", "$", "€", "£"}
	currencyWords   = []string{"USD", "EUR", "BRL", "GBP"}
)

// Amount parses a raw monetary cell into a signed decimal with exactly two
// fraction digits.
//
// Accounting-style parentheses and a leading minus both mean negative. When
// both '.' and ',' appear, whichever appears last is the decimal separator
// and the other is the thousands separator; a lone separator is always the
// decimal separator, so "1.234" is one point two three four, not one thousand
// two hundred thirty-four.
func Amount(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = stripCurrency(s)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == ' ' {
			return -1
		}
		return r
	}, s)

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return decimal.Decimal{}, false
	}

	s, ok := resolveSeparators(s)
	if !ok {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), true
}

func stripCurrency(s string) string {
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	upper := strings.ToUpper(s)
	for _, word := range currencyWords {
		if idx := strings.Index(upper, word); idx >= 0 {
			s = s[:idx] + s[idx+len(word):]
			upper = upper[:idx] + upper[idx+len(word):]
		}
	}
	return strings.TrimSpace(s)
}

// resolveSeparators rewrites the string to use '.' as the decimal separator
// and no thousands separators.
func resolveSeparators(s string) (string, bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Lone comma is the decimal separator. With repeated commas the
		// last one is decimal and the earlier ones group thousands.
		s = strings.Replace(s, ",", ".", strings.Count(s, ","))
		s = removeAllButLast(s, '.')
	case lastDot >= 0:
		s = removeAllButLast(s, '.')
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return "", false
		}
	}
	return s, s != "" && s != "."
}

func removeAllButLast(s string, sep rune) string {
	last := strings.LastIndex(s, string(sep))
	if last < 0 {
		return s
	}
	head := strings.ReplaceAll(s[:last], string(sep), "")
	return head + s[last:]
}
