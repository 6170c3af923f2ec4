package core

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthKey formats a year and month as YYYY-MM.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParseMonthKey parses a YYYY-MM key into the first day of that month (UTC).
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidMonthKey, key)
	}
	return t, nil
}

// ShiftMonth moves a month key by n months, backwards when n is negative.
func ShiftMonth(key string, n int) (string, error) {
	t, err := ParseMonthKey(key)
	if err != nil {
		return "", err
	}
	t = t.AddDate(0, n, 0)
	return MonthKey(t.Year(), t.Month()), nil
}

// MonthLabel renders a month key as "March 2024". Invalid keys are returned as is.
func MonthLabel(key string) string {
	t, err := ParseMonthKey(key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}
