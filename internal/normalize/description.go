package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options configures description normalization. The zero value collapses
// whitespace and trims, nothing else.
type Options struct {
	// Uppercase folds the result to upper case.
	Uppercase bool
	// StripSpecial replaces '*' and '/' with spaces and collapses runs of
	// '-' or '_' into a single space.
	StripSpecial bool
	// StripAccents removes diacritics ("Histórico" becomes "Historico").
	StripAccents bool
	// MaxLength truncates the result to this many runes, ending with an
	// ellipsis. Zero means no limit.
	MaxLength int
}

// DefaultOptions returns the normalization used for fingerprint input:
// whitespace collapse only, so that incidental casing and punctuation
// differences stay visible to the user but never affect identity (the
// fingerprint engine uppercases separately).
func DefaultOptions() Options {
	return Options{}
}

var (
	specialChars = regexp.MustCompile(`[*/]`)
	dashRuns     = regexp.MustCompile(`[-_]{2,}`)
)

// Description normalizes free text: internal whitespace collapses to single
// spaces and the result is trimmed, then the optional transforms apply.
func Description(text string, opts Options) string {
	s := strings.Join(strings.Fields(text), " ")

	if opts.StripSpecial {
		s = specialChars.ReplaceAllString(s, " ")
		s = dashRuns.ReplaceAllString(s, " ")
		s = strings.Join(strings.Fields(s), " ")
	}

	if opts.StripAccents {
		s = StripAccents(s)
	}

	if opts.Uppercase {
		s = strings.ToUpper(s)
	}

	if opts.MaxLength > 0 {
		r := []rune(s)
		if len(r) > opts.MaxLength {
			s = string(r[:opts.MaxLength-1]) + "…"
		}
	}

	return s
}

// StripAccents removes combining marks after NFD decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// knownPrefixes are boilerplate tokens banks prepend to descriptions.
// Longest first so "COMPRA CARTAO" wins over a hypothetical "COMPRA".
var knownPrefixes = []string{
	"DEBITO AUTOMATICO",
	"COMPRA CARTAO",
	"COMPRA DEBITO",
	"PAGAMENTO",
	"DEB AUT",
	"PIX",
	"TED",
	"DOC",
}

// StripKnownPrefixes removes one boilerplate token anchored at the start of
// the string, along with any separator punctuation that follows it. Matching
// is case- and accent-insensitive; tokens in the middle of the text are left
// alone.
func StripKnownPrefixes(text string) string {
	s := strings.TrimSpace(text)
	// Accent removal is rune-preserving for Latin text, so rune offsets in
	// the folded string map back onto the original.
	srunes := []rune(s)
	folded := strings.ToUpper(StripAccents(s))

	for _, prefix := range knownPrefixes {
		if !strings.HasPrefix(folded, prefix) {
			continue
		}
		plen := len([]rune(prefix))
		if plen > len(srunes) {
			continue
		}
		// Word boundary: "PIX MERCADO" matches, "PIXEL STORE" does not.
		if fr := []rune(folded); plen < len(fr) && (unicode.IsLetter(fr[plen]) || unicode.IsDigit(fr[plen])) {
			continue
		}
		rest := strings.TrimLeft(string(srunes[plen:]), " -:*")
		if rest == "" {
			return s
		}
		return rest
	}
	return s
}
