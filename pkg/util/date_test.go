package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.February || got.Day() != 29 {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestAddMonthsAcrossYears(t *testing.T) {
	cases := []struct {
		y, m, n      int
		wantY, wantM int
	}{
		{2024, 11, 1, 2024, 12},
		{2024, 12, 1, 2025, 1},
		{2024, 1, -1, 2023, 12},
		{2024, 6, 18, 2025, 12},
		{2024, 3, 0, 2024, 3},
	}
	for _, c := range cases {
		y, m := AddMonths(c.y, c.m, c.n)
		if y != c.wantY || m != c.wantM {
			t.Fatalf("AddMonths(%d,%d,%d) = %d-%d, want %d-%d", c.y, c.m, c.n, y, m, c.wantY, c.wantM)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	if got := MonthsBetween(2024, 11, 2025, 2); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := MonthsBetween(2025, 2, 2024, 11); got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
	if got := MonthsBetween(2025, 2, 2025, 2); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default")
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected default on invalid input")
	}
	if got := ParseInt64Default("42", 0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
