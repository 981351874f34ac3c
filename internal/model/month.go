package model

import (
	"fmt"
	"strings"
)

// Contract months are canonical "MonYY" strings (e.g. "Jul25"). Ordering is
// by (year, month index), never lexicographic.

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var monthNames = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ParseContractMonth splits a canonical "MonYY" token into year and month
// index (1..12). The two-digit year maps into 2000..2099.
func ParseContractMonth(s string) (year int, month int, err error) {
	if len(s) != 5 {
		return 0, 0, fmt.Errorf("invalid contract month %q", s)
	}
	idx, ok := monthIndex[strings.ToLower(s[:3])]
	if !ok {
		return 0, 0, fmt.Errorf("invalid contract month %q", s)
	}
	var yy int
	if _, err := fmt.Sscanf(s[3:], "%d", &yy); err != nil || yy < 0 {
		return 0, 0, fmt.Errorf("invalid contract month %q", s)
	}
	return 2000 + yy, idx, nil
}

// FormatContractMonth renders (year, month index) back to "MonYY".
func FormatContractMonth(year, month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%s%02d", monthNames[month-1], year%100)
}

// CompareContractMonths orders two canonical months chronologically.
// Unparseable months order after valid ones, then by string.
func CompareContractMonths(a, b string) int {
	ya, ma, errA := ParseContractMonth(a)
	yb, mb, errB := ParseContractMonth(b)
	if errA != nil || errB != nil {
		if errA == nil {
			return -1
		}
		if errB == nil {
			return 1
		}
		return strings.Compare(a, b)
	}
	if ya != yb {
		if ya < yb {
			return -1
		}
		return 1
	}
	if ma != mb {
		if ma < mb {
			return -1
		}
		return 1
	}
	return 0
}

// NextContractMonth returns the month immediately after the given one.
func NextContractMonth(s string) (string, error) {
	y, m, err := ParseContractMonth(s)
	if err != nil {
		return "", err
	}
	m++
	if m > 12 {
		m = 1
		y++
	}
	return FormatContractMonth(y, m), nil
}

// AdjacentMonths reports whether b is the calendar month directly after a.
func AdjacentMonths(a, b string) bool {
	next, err := NextContractMonth(a)
	if err != nil {
		return false
	}
	return next == b
}
