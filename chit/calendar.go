package chit

import (
	"fmt"
	"time"
)

// =============================================================================
// YEAR MONTH - Calendar month granularity (cycles are whole months)
// =============================================================================

type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Advance moves n whole months, carrying into the year. n may be negative.
func (ym YearMonth) Advance(n int) YearMonth {
	idx := ym.index() + n
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return YearMonth{Year: year, Month: time.Month(month + 1)}
}

// MonthsUntil returns how many whole months lie between ym and other.
func (ym YearMonth) MonthsUntil(other YearMonth) int { return other.index() - ym.index() }

func (ym YearMonth) index() int { return ym.Year*12 + int(ym.Month) - 1 }

// Comparison
func (ym YearMonth) Before(other YearMonth) bool { return ym.index() < other.index() }
func (ym YearMonth) After(other YearMonth) bool  { return ym.index() > other.index() }
func (ym YearMonth) Equal(other YearMonth) bool  { return ym.index() == other.index() }

func (ym YearMonth) Valid() bool { return ym.Month >= time.January && ym.Month <= time.December }

// String returns the long label, e.g. "January 2025".
func (ym YearMonth) String() string { return fmt.Sprintf("%s %d", ym.Month, ym.Year) }

// Short returns the abbreviated label, e.g. "Jan 2025".
func (ym YearMonth) Short() string { return fmt.Sprintf("%.3s %d", ym.Month.String(), ym.Year) }

// FirstDay returns midnight UTC on the first of the month.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// SCHEDULE PERIOD
// =============================================================================

// EndMonth derives the last cycle's month: start advanced by total-1 months.
func EndMonth(start YearMonth, totalMonths int) YearMonth {
	return start.Advance(totalMonths - 1)
}

// Period is the inclusive [Start, End] month range of a fund.
type Period struct {
	Start YearMonth
	End   YearMonth
}

func (p Period) Contains(ym YearMonth) bool {
	return !ym.Before(p.Start) && !ym.After(p.End)
}

func (p Period) String() string {
	return p.Start.Short() + " - " + p.End.Short()
}

func (f Fund) Period() Period { return Period{Start: f.Start, End: f.End} }

// IsActive reports whether now falls within the fund's running months.
func IsActive(f Fund, now time.Time) bool {
	return f.Period().Contains(YearMonthOf(now))
}

// CurrentCycle maps a calendar instant to the cycle index running then.
func CurrentCycle(f Fund, now time.Time) (int, bool) {
	cycle := f.Start.MonthsUntil(YearMonthOf(now))
	if !f.inRange(cycle) {
		return 0, false
	}
	return cycle, true
}
