package domain

import (
	"testing"
	"time"
)

func TestParseFlexibleDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2025-01-31", "2025-01-31"},
		{"31/1/2025", "2025-01-31"},
		{"31-1-2025", "2025-01-31"},
		{"1.31.2025", "2025-01-31"},
		{"5/2/25", "2025-02-05"},
		{"05-02-25", "2025-02-05"},
	}
	for _, tc := range cases {
		parsed, err := ParseFlexibleDate(tc.raw)
		if err != nil {
			t.Errorf("ParseFlexibleDate(%q): %v", tc.raw, err)
			continue
		}
		if got := LocalDate(parsed); got != tc.want {
			t.Errorf("ParseFlexibleDate(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseFlexibleDateRejects(t *testing.T) {
	for _, raw := range []string{"", "not-a-date", "32/1/2025", "1/13/2025", "2025", "1/2"} {
		if _, err := ParseFlexibleDate(raw); err == nil {
			t.Errorf("ParseFlexibleDate(%q): expected error", raw)
		}
	}
}

func TestParseFlexibleDateExcelSerial(t *testing.T) {
	parsed, err := ParseFlexibleDate("45658")
	if err != nil {
		t.Fatalf("serial parse: %v", err)
	}
	if parsed.Year() != 2025 {
		t.Errorf("serial year = %d, want 2025", parsed.Year())
	}
}

func TestWeekOf(t *testing.T) {
	// 2025-01-08 is a Wednesday.
	wednesday := time.Date(2025, 1, 8, 13, 30, 0, 0, time.Local)
	monday, sunday := WeekOf(wednesday)
	if LocalDate(monday) != "2025-01-06" {
		t.Errorf("monday = %s, want 2025-01-06", LocalDate(monday))
	}
	if LocalDate(sunday) != "2025-01-12" {
		t.Errorf("sunday = %s, want 2025-01-12", LocalDate(sunday))
	}

	// A Sunday stays inside its own week.
	monday, _ = WeekOf(time.Date(2025, 1, 12, 0, 0, 0, 0, time.Local))
	if LocalDate(monday) != "2025-01-06" {
		t.Errorf("monday from sunday = %s, want 2025-01-06", LocalDate(monday))
	}
}

func TestFutureLocalDate(t *testing.T) {
	now := time.Date(2025, 1, 8, 23, 59, 0, 0, time.Local)
	if FutureLocalDate("2025-01-08", now) {
		t.Error("today must not be future")
	}
	if !FutureLocalDate("2025-01-09", now) {
		t.Error("tomorrow must be future")
	}
	if FutureLocalDate("2024-12-31", now) {
		t.Error("past must not be future")
	}
}
