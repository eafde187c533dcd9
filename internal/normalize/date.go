// Package normalize converts raw statement strings into typed values: dates
// in BR/US/ISO forms, monetary amounts in BR/US decimal conventions, and
// free-text descriptions. All functions are pure; normalization always runs
// before fingerprinting, never after.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// fourDigitYearLayouts are tried in order after an explicit hint and ISO.
// Unpadded layout elements accept both "05/01/2024" and "5/1/2024".
var fourDigitYearLayouts = []string{
	"2/1/2006", // DD/MM/YYYY
	"2-1-2006", // DD-MM-YYYY
	"2006/1/2", // YYYY/MM/DD
	"2.1.2006", // DD.MM.YYYY
}

// twoDigitYearSeparators are tried last, in this order: DD/MM/YY, DD-MM-YY,
// DD.MM.YY.
var twoDigitYearSeparators = []string{"/", "-", "."}

// Date parses a raw date cell. The explicit hint layout is tried first, then
// ISO (YYYY-MM-DD), then the day-first forms banks actually export. The first
// strictly valid parse wins; impossible calendar dates (month 13, Feb 30) are
// rejected.
//
// Two-digit years are interpreted literally: "25/10/24" is the year 24, not
// 2024. This matches the behavior statement producers rely on and is a
// documented contract, not century inference gone missing.
func Date(text string, hint string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if hint != "" {
		if t, err := time.Parse(hint, text); err == nil {
			return dateOnly(t), true
		}
	}

	if t, err := time.Parse("2006-1-2", text); err == nil {
		return dateOnly(t), true
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return dateOnly(t), true
		}
	}

	for _, sep := range twoDigitYearSeparators {
		if t, ok := parseTwoDigitYear(text, sep); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseTwoDigitYear handles DD<sep>MM<sep>YY with the year taken literally.
// time.Parse cannot express this: its "06" element infers a century.
func parseTwoDigitYear(text, sep string) (time.Time, bool) {
	parts := strings.Split(text, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	if len(parts[2]) != 2 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 becomes Mar 2); a round-trip
	// mismatch means the calendar date did not exist.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
