package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var ErrBadDate = errors.New("unrecognised date")

// ParseFlexibleDate accepts the date shapes the upstream systems emit:
// ISO YYYY-MM-DD, day-first D/M/Y and D-M-Y, month-first M.D.Y, and Excel
// numeric serials. Two-digit years are coerced by adding 2000.
func ParseFlexibleDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, ErrBadDate
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, ErrBadDate
	}

	if t, err := time.Parse("2006-01-02", trimmed); err == nil {
		return t, nil
	}

	for _, sep := range []string{"/", "-", "."} {
		parts := strings.Split(trimmed, sep)
		if len(parts) != 3 {
			continue
		}
		first, err1 := strconv.Atoi(parts[0])
		second, err2 := strconv.Atoi(parts[1])
		year, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if year < 100 {
			year += 2000
		}
		day, month := first, second
		if sep == "." {
			// Dotted dates arrive month-first.
			day, month = second, first
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, ErrBadDate
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		if t.Day() != day || t.Month() != time.Month(month) {
			return time.Time{}, ErrBadDate
		}
		return t, nil
	}
	return time.Time{}, ErrBadDate
}

// LocalDate renders t as the local-calendar YYYY-MM-DD string. All future-date
// guards compare these strings, never UTC instants.
func LocalDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekOf returns the Monday and Sunday bounding the week that contains day.
func WeekOf(day time.Time) (time.Time, time.Time) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// WeekDates lists the seven column dates of the week starting at monday.
func WeekDates(monday time.Time) [7]string {
	var dates [7]string
	for i := 0; i < 7; i++ {
		dates[i] = LocalDate(monday.AddDate(0, 0, i))
	}
	return dates
}

// WeekKey is the storage key fragment for a week, e.g. "2025-01-06_2025-01-12".
func WeekKey(monday, sunday time.Time) string {
	return fmt.Sprintf("%s_%s", LocalDate(monday), LocalDate(sunday))
}

// FutureLocalDate reports whether date (YYYY-MM-DD) is strictly after today in
// local time. Lexicographic compare is safe on the fixed-width form.
func FutureLocalDate(date string, now time.Time) bool {
	return date > LocalDate(now)
}

// TZOffsetMinutes is the local UTC offset in minutes at now, matching what the
// original client sent to the upsert endpoint.
func TZOffsetMinutes(now time.Time) int {
	_, offsetSeconds := now.Zone()
	return offsetSeconds / 60
}
