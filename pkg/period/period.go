// Package period models the calendar months that sync and reset operate on.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the textual form of a Period.
const Layout = "2006-01"

// Period is one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// New returns the period for year and month.
func New(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// Parse reads a "YYYY-MM" string.
func Parse(s string) (Period, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Of returns the period containing t as seen in loc.
func Of(t time.Time, loc *time.Location) Period {
	if loc != nil {
		t = t.In(loc)
	}
	return Period{Year: t.Year(), Month: t.Month()}
}

// String formats the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether p is the zero Period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Valid reports whether p names a real month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// Bounds returns the half-open interval [start, end) of the month in loc.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls in the month as seen in loc.
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	start, end := p.Bounds(loc)
	return !t.Before(start) && t.Before(end)
}

// Next returns the following month.
func (p Period) Next() Period {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Before reports whether p is earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Range returns every month from "from" to "to" inclusive.
func Range(from, to Period) ([]Period, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("period range %s..%s is reversed", from, to)
	}
	var out []Period
	for p := from; !to.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out, nil
}
