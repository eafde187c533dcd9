package normalize

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		hint  string
		want  time.Time
		ok    bool
	}{
		{name: "iso", input: "2024-10-25", want: d(2024, time.October, 25), ok: true},
		{name: "br slash", input: "25/10/2024", want: d(2024, time.October, 25), ok: true},
		{name: "br dash", input: "25-10-2024", want: d(2024, time.October, 25), ok: true},
		{name: "year first slash", input: "2024/10/25", want: d(2024, time.October, 25), ok: true},
		{name: "br dots", input: "25.10.2024", want: d(2024, time.October, 25), ok: true},
		{name: "unpadded", input: "5/1/2024", want: d(2024, time.January, 5), ok: true},
		{name: "two digit year literal", input: "25/10/24", want: d(24, time.October, 25), ok: true},
		{name: "two digit year dash", input: "25-10-24", want: d(24, time.October, 25), ok: true},
		{name: "two digit year dots", input: "25.10.24", want: d(24, time.October, 25), ok: true},
		{name: "hint wins", input: "10/25/2024", hint: "1/2/2006", want: d(2024, time.October, 25), ok: true},
		{name: "hint fails falls through", input: "2024-10-25", hint: "1/2/2006", want: d(2024, time.October, 25), ok: true},
		{name: "surrounding whitespace", input: "  25/10/2024  ", want: d(2024, time.October, 25), ok: true},
		{name: "month 13 rejected", input: "25/13/2024", ok: false},
		{name: "feb 30 rejected", input: "30/02/2024", ok: false},
		{name: "feb 30 two digit rejected", input: "30/02/24", ok: false},
		{name: "garbage", input: "not a date", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "partial", input: "25/10", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.input, tt.hint)
			if ok != tt.ok {
				t.Fatalf("Date(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Date(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_TimeOfDayZero(t *testing.T) {
	got, ok := Date("2024-10-25", "")
	if !ok {
		t.Fatal("Date() failed")
	}
	h, m, s := got.Clock()
	if h != 0 || m != 0 || s != 0 {
		t.Errorf("Date() kept time-of-day: %v", got)
	}
}
