package utils

import "time"

// Billing periods are whole calendar months anchored on the rental start
// date. Period N runs from anchor advanced by N months through the day
// before the next period starts, so a 2024-01-01 anchor yields
// 2024-01-01..2024-01-31, 2024-02-01..2024-02-29 and so on.

// DateOnly truncates t to midnight UTC. All billing math works on dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PeriodBounds returns the start and end dates of billing period n (zero
// based) for the given anchor date.
func PeriodBounds(anchor time.Time, n int) (time.Time, time.Time) {
	start := DateOnly(anchor).AddDate(0, n, 0)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return start, end
}

// PeriodIndexAt returns the index of the billing period containing asOf,
// or -1 when asOf precedes the anchor.
func PeriodIndexAt(anchor, asOf time.Time) int {
	anchor = DateOnly(anchor)
	asOf = DateOnly(asOf)
	if asOf.Before(anchor) {
		return -1
	}
	// Whole elapsed months; AddDate keeps this exact for any anchor day.
	n := (asOf.Year()-anchor.Year())*12 + int(asOf.Month()) - int(anchor.Month())
	for n > 0 && anchor.AddDate(0, n, 0).After(asOf) {
		n--
	}
	return n
}

// WholeMonthsBetween counts fully elapsed months from `from` to `to`,
// never negative.
func WholeMonthsBetween(from, to time.Time) int {
	from = DateOnly(from)
	to = DateOnly(to)
	if !from.Before(to) {
		return 0
	}
	n := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	for n > 0 && from.AddDate(0, n, 0).After(to) {
		n--
	}
	return n
}

// DaysInclusive counts the days from start through end, both included.
func DaysInclusive(start, end time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// ProratedCents charges monthlyRateCents for the slice of the period that
// was actually used, rounding half up in cents.
func ProratedCents(monthlyRateCents int64, periodStart, periodEnd, usedThrough time.Time) int64 {
	total := DaysInclusive(periodStart, periodEnd)
	used := DaysInclusive(periodStart, usedThrough)
	if used >= total {
		return monthlyRateCents
	}
	if used <= 0 {
		return 0
	}
	return (monthlyRateCents*int64(used) + int64(total)/2) / int64(total)
}

// LateFeeCents is the flat charge per overdue period: rate in basis points
// applied to the monthly rate, once per period, never compounding.
func LateFeeCents(monthlyRateCents int64, lateFeeBps int32, overduePeriods int) int64 {
	if overduePeriods <= 0 || lateFeeBps <= 0 {
		return 0
	}
	perPeriod := monthlyRateCents * int64(lateFeeBps) / 10000
	return perPeriod * int64(overduePeriods)
}
