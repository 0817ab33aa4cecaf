package dates

import (
	"testing"
	"time"
)

func TestMonthsElapsed(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{29, 1},
		{30, 1},
		{31, 2},
		{40, 2},
		{60, 2},
		{61, 3},
		{365, 13},
	}
	for _, tt := range tests {
		if got := MonthsElapsed(tt.days); got != tt.want {
			t.Errorf("MonthsElapsed(%d) = %d, want %d", tt.days, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	from := Date(2024, time.January, 1)

	if got := DaysBetween(from, Date(2024, time.February, 10)); got != 40 {
		t.Errorf("expected 40 days, got %d", got)
	}
	if got := DaysBetween(from, from); got != 0 {
		t.Errorf("expected 0 days, got %d", got)
	}
	if got := DaysBetween(from, Date(2023, time.December, 30)); got != -2 {
		t.Errorf("expected -2 days, got %d", got)
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	from := time.Date(2024, time.March, 1, 23, 59, 0, 0, bangkok)
	to := time.Date(2024, time.March, 2, 0, 1, 0, 0, bangkok)

	if got := DaysBetween(from, to); got != 1 {
		t.Errorf("expected 1 day across midnight, got %d", got)
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	from := time.Date(2024, time.March, 30, 12, 0, 0, 0, loc)
	to := time.Date(2024, time.April, 1, 12, 0, 0, 0, loc)

	if got := DaysBetween(from, to); got != 2 {
		t.Errorf("expected 2 days across DST change, got %d", got)
	}
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		pawn time.Time
		term int
		want time.Time
	}{
		{Date(2024, time.January, 15), 1, Date(2024, time.February, 15)},
		{Date(2024, time.January, 15), 4, Date(2024, time.May, 15)},
		{Date(2024, time.November, 30), 3, Date(2025, time.March, 2)},
		{Date(2023, time.January, 31), 1, Date(2023, time.March, 3)},
	}
	for _, tt := range tests {
		if got := DueDate(tt.pawn, tt.term); !got.Equal(tt.want) {
			t.Errorf("DueDate(%s, %d) = %s, want %s", FormatDate(tt.pawn), tt.term, FormatDate(got), FormatDate(tt.want))
		}
	}
}

func TestToday(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	clock := FixedClock{T: time.Date(2024, time.June, 1, 1, 30, 0, 0, bangkok)}

	if got := Today(clock); !got.Equal(Date(2024, time.June, 1)) {
		t.Errorf("expected 2024-06-01, got %s", FormatDate(got))
	}
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if FormatDate(d) != "2024-02-29" {
		t.Errorf("round trip mismatch: %s", FormatDate(d))
	}

	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	a := FormatTimestamp(time.Date(2024, time.January, 9, 23, 0, 0, 0, time.UTC))
	b := FormatTimestamp(time.Date(2024, time.January, 10, 1, 0, 0, 0, time.UTC))
	if !(a < b) {
		t.Errorf("expected %q < %q", a, b)
	}

	parsed, err := ParseTimestamp(b)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if parsed.Hour() != 1 {
		t.Errorf("expected hour 1, got %d", parsed.Hour())
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2025, 3, 2, 1, 30, 0, 0, loc)

	got := StartOfDay(now, 3)
	want := time.Date(2025, 2, 27, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %s, want %s", got, want)
	}
	// Stored instants are UTC; the boundary is still local midnight.
	if got.UTC().Hour() != 17 {
		t.Errorf("expected 17:00 UTC, got %s", got.UTC())
	}
}
