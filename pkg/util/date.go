package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar-date layout used by the transaction tables.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseDate parses a calendar date ("2006-01-02") and falls back to ParseTime.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, ok := ParseTime(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// MonthIndex maps (year, month) onto a continuous month counter.
func MonthIndex(year, month int) int {
	return year*12 + (month - 1)
}

// FromMonthIndex is the inverse of MonthIndex.
func FromMonthIndex(idx int) (year, month int) {
	year = idx / 12
	month = idx%12 + 1
	return year, month
}

// AddMonths shifts (year, month) by n months, n may be negative.
func AddMonths(year, month, n int) (int, int) {
	return FromMonthIndex(MonthIndex(year, month) + n)
}

// MonthsBetween returns how many months "to" lies after "from".
func MonthsBetween(fromYear, fromMonth, toYear, toMonth int) int {
	return MonthIndex(toYear, toMonth) - MonthIndex(fromYear, fromMonth)
}

// ValidMonth reports whether m is a calendar month number.
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}
