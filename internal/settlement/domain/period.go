package settlement

import (
	"fmt"
	"strconv"
	"time"
)

const periodLayout = "2006-01"

// Period is a billing month in canonical YYYY-MM form.
// It is used as a record field, as a query key and for month arithmetic.
type Period string

// ParsePeriod validates a YYYY-MM string.
func ParsePeriod(value string) (Period, error) {
	if len(value) != len(periodLayout) || value[4] != '-' {
		return "", ErrInvalidPeriod
	}
	year, err := strconv.Atoi(value[:4])
	if err != nil || year < 0 {
		return "", ErrInvalidPeriod
	}
	month, err := strconv.Atoi(value[5:])
	if err != nil || month < 1 || month > 12 {
		return "", ErrInvalidPeriod
	}
	return NewPeriod(year, time.Month(month)), nil
}

// NewPeriod builds a period from a year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), t.Month())
}

// Year returns the year part.
func (p Period) Year() int {
	if len(p) != len(periodLayout) {
		return 0
	}
	year, _ := strconv.Atoi(string(p[:4]))
	return year
}

// Month returns the month part.
func (p Period) Month() time.Month {
	if len(p) != len(periodLayout) {
		return 0
	}
	month, _ := strconv.Atoi(string(p[5:]))
	return time.Month(month)
}

// Previous returns the period one calendar month earlier.
// January wraps to December of the previous year.
func (p Period) Previous() Period {
	year, month := p.Year(), p.Month()
	if month == time.January {
		return NewPeriod(year-1, time.December)
	}
	return NewPeriod(year, month-1)
}

// Next returns the period one calendar month later.
func (p Period) Next() Period {
	year, month := p.Year(), p.Month()
	if month == time.December {
		return NewPeriod(year+1, time.January)
	}
	return NewPeriod(year, month+1)
}

// Before reports whether p sorts before other.
// Canonical periods order lexicographically.
func (p Period) Before(other Period) bool { return p < other }

// String returns the raw string for storage.
func (p Period) String() string { return string(p) }

// ResolvePreviousPeriod returns the period whose closing balance seeds p.
func ResolvePreviousPeriod(p Period) Period { return p.Previous() }

// PeriodsBetween returns every period from..to inclusive.
func PeriodsBetween(from, to Period) []Period {
	if to.Before(from) {
		return nil
	}
	var result []Period
	for p := from; !to.Before(p); p = p.Next() {
		result = append(result, p)
	}
	return result
}
