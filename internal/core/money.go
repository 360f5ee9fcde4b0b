package core

// Helpers for parsing currency amounts and dates from the loosely formatted
// text found in CSV exports and spreadsheets.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a currency string to an exact decimal.
//
// It trims whitespace, a leading currency symbol and thousands separators.
// Negative values are accepted since profits can be losses.
//
// Examples:
//
//	ParseMoney("261.96")    -> 261.96
//	ParseMoney("$1,044.63") -> 1044.63
//	ParseMoney("-383.031")  -> -383.031
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts ISO dates, US-style m/d/yyyy dates and RFC3339 timestamps.
// The result is always in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
