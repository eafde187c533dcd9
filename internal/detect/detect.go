// Package detect infers the dialect of an uploaded statement file: column
// separator, header-row offset, OFX variant, overall format, and text
// encoding. Detection only ever looks at a raw sample; it never mutates the
// file content.
package detect

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrNoHeaderRow is returned when no plausible header row exists. This is
// fatal: the orchestrator must not attempt row parsing without one.
var ErrNoHeaderRow = errors.New("no header row found in sample")

// Format identifies the overall file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatOFX     Format = "ofx"
	FormatUnknown Format = "unknown"
)

// OFXVersion distinguishes OFX 1.x SGML from OFX 2.x XML.
type OFXVersion int

const (
	OFXVersion1 OFXVersion = 1 // SGML, tags without closing pairs
	OFXVersion2 OFXVersion = 2 // XML
)

func (v OFXVersion) String() string {
	switch v {
	case OFXVersion1:
		return "1.x (SGML)"
	case OFXVersion2:
		return "2.x (XML)"
	default:
		return "unknown"
	}
}

// separatorCandidates in priority order. Semicolon wins ties because
// Brazilian bank exports default to it.
var separatorCandidates = []rune{';', ',', '\t', '|'}

// DetectSeparator infers the column separator from sample lines.
//
// For each candidate, occurrences are counted per non-blank line. A candidate
// is consistent when every line has the same non-zero count, scoring its
// column count; near-consistent (at most one deviating line, which tolerates
// a trailing summary or blank-ish line) scores 80% of the dominant column
// count. The highest score wins; ties keep candidate priority order. When
// nothing scores above zero the default is ';'.
func DetectSeparator(lines []string) rune {
	best := ';'
	bestScore := 0.0

	for _, cand := range separatorCandidates {
		score := scoreSeparator(lines, cand)
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best
}

func scoreSeparator(lines []string, sep rune) float64 {
	counts := make(map[int]int)
	total := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		counts[strings.Count(line, string(sep))]++
		total++
	}
	if total == 0 {
		return 0
	}

	dominant, dominantLines := 0, 0
	for c, n := range counts {
		if n > dominantLines || (n == dominantLines && c > dominant) {
			dominant, dominantLines = c, n
		}
	}
	if dominant == 0 {
		return 0
	}

	cols := float64(dominant + 1)
	switch {
	case dominantLines == total:
		return cols
	case total-dominantLines == 1:
		return cols * 0.8
	default:
		return 0
	}
}

// DetectHeaderRow scans from the top for the first line whose column count
// matches the dominant column count of the following lines (at least 3
// required) and whose cells are not purely numeric. This skips the
// letterhead and metadata preambles common in bank exports. Returns false
// when no such line exists.
func DetectHeaderRow(lines []string, sep rune) (int, bool) {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		following := nonBlank(lines[i+1:])
		if len(following) < 3 {
			break
		}

		cells := strings.Split(line, string(sep))
		if len(cells) < 2 {
			continue
		}
		if len(cells) != dominantColumnCount(following, sep) {
			continue
		}
		if allNumeric(cells) {
			continue
		}
		return i, true
	}
	return 0, false
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func dominantColumnCount(lines []string, sep rune) int {
	counts := make(map[int]int)
	for _, l := range lines {
		counts[len(strings.Split(l, string(sep)))]++
	}
	dominant, dominantLines := 0, 0
	for c, n := range counts {
		if n > dominantLines {
			dominant, dominantLines = c, n
		}
	}
	return dominant
}

// allNumeric reports whether every non-empty cell looks like a number or a
// date: digits plus separator punctuation. A header row always carries at
// least one wordy cell.
func allNumeric(cells []string) bool {
	sawContent := false
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		sawContent = true
		hasDigit := false
		for _, r := range cell {
			switch {
			case r >= '0' && r <= '9':
				hasDigit = true
			case strings.ContainsRune(".,-+/() \t", r):
			default:
				return false
			}
		}
		if !hasDigit {
			return false
		}
	}
	return sawContent
}

// DetectOFXVersion returns V2 when the content carries an XML declaration or
// a namespaced <OFX> opening tag; everything else is treated as 1.x SGML.
func DetectOFXVersion(content string) OFXVersion {
	upper := strings.ToUpper(content)
	if strings.Contains(upper, "<?XML") || strings.Contains(upper, "<OFX XMLNS") {
		return OFXVersion2
	}
	return OFXVersion1
}

// DetectFormat sniffs the overall file format from the filename extension
// and a header sample.
func DetectFormat(filename string, header []byte) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	upper := strings.ToUpper(string(header))

	hasOFXMarker := strings.Contains(upper, "OFXHEADER") ||
		strings.Contains(upper, "<?OFX") ||
		strings.Contains(upper, "<OFX")

	switch ext {
	case ".ofx", ".qfx":
		if hasOFXMarker {
			return FormatOFX
		}
		return FormatUnknown
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	}

	if hasOFXMarker {
		return FormatOFX
	}
	return FormatUnknown
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText converts raw file bytes to a UTF-8 string. An explicit declared
// charset wins; otherwise valid UTF-8 passes through and anything else is
// decoded as Windows-1252, which covers the Latin-1 exports Brazilian banks
// still produce.
func DecodeText(raw []byte, declared string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	switch strings.ToLower(declared) {
	case "", "auto":
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return decodeCharmap(raw, charmap.Windows1252)
	case "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("content declared utf-8 but is not valid utf-8")
		}
		return string(raw), nil
	case "windows-1252", "cp1252":
		return decodeCharmap(raw, charmap.Windows1252)
	case "iso-8859-1", "latin-1", "latin1":
		return decodeCharmap(raw, charmap.ISO8859_1)
	default:
		return "", fmt.Errorf("unsupported charset %q", declared)
	}
}

func decodeCharmap(raw []byte, cm *charmap.Charmap) (string, error) {
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s content: %w", cm.String(), err)
	}
	return string(out), nil
}

// SampleLines returns up to n lines of content for detection. The sample is
// a read-only view; callers must not reuse it as parse input.
func SampleLines(content string, n int) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
