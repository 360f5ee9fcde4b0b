package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AllYearsLabel is the sentinel the dashboard sends for "no year filter".
const AllYearsLabel = "All"

// Year is an optional calendar year. The zero value means "all years".
type Year struct {
	value int
	set   bool
}

// AllYears returns the absent year.
func AllYears() Year { return Year{} }

// NewYear returns a present year. It does not validate the range; use ParseYear
// for untrusted input.
func NewYear(y int) Year { return Year{value: y, set: true} }

// ParseYear accepts "", "All" (any case) or a 4-digit integer.
//
//	ParseYear("")     -> AllYears(), nil
//	ParseYear("All")  -> AllYears(), nil
//	ParseYear("2016") -> NewYear(2016), nil
//	ParseYear("16")   -> error
func ParseYear(s string) (Year, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllYearsLabel) {
		return AllYears(), nil
	}
	if len(s) != 4 {
		return Year{}, fmt.Errorf("%w: %q is not a 4-digit year", ErrInvalidYear, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Year{}, fmt.Errorf("%w: %q is not a 4-digit year", ErrInvalidYear, s)
		}
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 {
		return Year{}, fmt.Errorf("%w: %q is not a 4-digit year", ErrInvalidYear, s)
	}
	return NewYear(y), nil
}

// IsSet reports whether a year filter applies.
func (y Year) IsSet() bool { return y.set }

// Range returns the closed-open interval [Jan 1 y, Jan 1 y+1) in UTC.
func (y Year) Range() (from, to time.Time, ok bool) {
	if !y.set {
		return time.Time{}, time.Time{}, false
	}
	from = time.Date(y.value, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0), true
}

// Contains reports whether t falls inside the year; always true when unset.
func (y Year) Contains(t time.Time) bool {
	from, to, ok := y.Range()
	if !ok {
		return true
	}
	return !t.Before(from) && t.Before(to)
}

func (y Year) String() string {
	if !y.set {
		return AllYearsLabel
	}
	return strconv.Itoa(y.value)
}
