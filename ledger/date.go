package ledger

import "time"

// =============================================================================
// DATE - Calendar date, no time-of-day
// =============================================================================

// Date is a day-granular calendar date. Ledger ordering compares dates on
// their YYYY-MM-DD form, so two events on the same day always need the
// id tie-break (see allocator.go).
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &InvalidInputError{Field: "date", Reason: "not a YYYY-MM-DD date: " + s}
	}
	return Date{t: t}, nil
}

// MustDate is ParseDate for constants and tests; it panics on bad input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.t.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// String returns the YYYY-MM-DD form, which is also the sort form.
func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// PERIOD - Inclusive date window for snapshot reporting
// =============================================================================

// Period is an inclusive [Start, End] date window. The monthly snapshot
// variant windows both charges and payments to one calendar month.
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether d falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) Valid() bool { return !p.End.Before(p.Start) }

func (p Period) String() string { return "[" + p.Start.String() + ", " + p.End.String() + "]" }

// MonthOf returns the calendar-month period containing d.
func MonthOf(d Date) Period {
	start := NewDate(d.Year(), d.Month(), 1)
	end := start.AddMonths(1).AddDays(-1)
	return Period{Start: start, End: end}
}
