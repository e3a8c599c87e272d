package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodBounds(t *testing.T) {
	t.Run("FirstOfMonthAnchor", func(t *testing.T) {
		start, end := PeriodBounds(day(2024, time.January, 1), 0)
		assert.Equal(t, day(2024, time.January, 1), start)
		assert.Equal(t, day(2024, time.January, 31), end)

		start, end = PeriodBounds(day(2024, time.January, 1), 1)
		assert.Equal(t, day(2024, time.February, 1), start)
		assert.Equal(t, day(2024, time.February, 29), end)
	})

	t.Run("MidMonthAnchor", func(t *testing.T) {
		start, end := PeriodBounds(day(2024, time.January, 15), 0)
		assert.Equal(t, day(2024, time.January, 15), start)
		assert.Equal(t, day(2024, time.February, 14), end)
	})

	t.Run("AnchorOnThe31st", func(t *testing.T) {
		// AddDate normalization pushes Jan 31 + 1 month into early March.
		start, _ := PeriodBounds(day(2024, time.January, 31), 1)
		assert.Equal(t, day(2024, time.March, 2), start)
	})
}

func TestPeriodIndexAt(t *testing.T) {
	anchor := day(2024, time.January, 1)
	assert.Equal(t, -1, PeriodIndexAt(anchor, day(2023, time.December, 31)))
	assert.Equal(t, 0, PeriodIndexAt(anchor, anchor))
	assert.Equal(t, 0, PeriodIndexAt(anchor, day(2024, time.January, 31)))
	assert.Equal(t, 1, PeriodIndexAt(anchor, day(2024, time.February, 1)))
	assert.Equal(t, 11, PeriodIndexAt(anchor, day(2024, time.December, 15)))
}

func TestWholeMonthsBetween(t *testing.T) {
	assert.Equal(t, 0, WholeMonthsBetween(day(2024, time.January, 1), day(2024, time.January, 1)))
	assert.Equal(t, 0, WholeMonthsBetween(day(2024, time.January, 1), day(2024, time.January, 31)))
	assert.Equal(t, 1, WholeMonthsBetween(day(2024, time.January, 1), day(2024, time.February, 1)))
	assert.Equal(t, 2, WholeMonthsBetween(day(2024, time.January, 1), day(2024, time.March, 1)))
	assert.Equal(t, 0, WholeMonthsBetween(day(2024, time.March, 1), day(2024, time.January, 1)))
}

func TestProratedCents(t *testing.T) {
	start, end := day(2024, time.January, 1), day(2024, time.January, 31)

	t.Run("HalfUpRounding", func(t *testing.T) {
		// 15 of 31 days at $310.00: 465015 / 31 rounds down to 150.00.
		assert.Equal(t, int64(15000), ProratedCents(31000, start, end, day(2024, time.January, 15)))
		// 10 of 31 days at $100.00: 3225.8 rounds up to 3226.
		assert.Equal(t, int64(3226), ProratedCents(10000, start, end, day(2024, time.January, 10)))
	})

	t.Run("FullPeriodChargesFullRate", func(t *testing.T) {
		assert.Equal(t, int64(10000), ProratedCents(10000, start, end, end))
		assert.Equal(t, int64(10000), ProratedCents(10000, start, end, day(2024, time.February, 10)))
	})

	t.Run("NothingUsedChargesNothing", func(t *testing.T) {
		assert.Equal(t, int64(0), ProratedCents(10000, start, end, day(2023, time.December, 31)))
	})
}

func TestLateFeeCents(t *testing.T) {
	// 5% of $100.00 per overdue period, flat.
	assert.Equal(t, int64(500), LateFeeCents(10000, 500, 1))
	assert.Equal(t, int64(1000), LateFeeCents(10000, 500, 2))
	assert.Equal(t, int64(0), LateFeeCents(10000, 500, 0))
	assert.Equal(t, int64(0), LateFeeCents(10000, 0, 3))
}

func TestDaysInclusive(t *testing.T) {
	assert.Equal(t, 1, DaysInclusive(day(2024, time.January, 1), day(2024, time.January, 1)))
	assert.Equal(t, 31, DaysInclusive(day(2024, time.January, 1), day(2024, time.January, 31)))
	assert.Equal(t, 0, DaysInclusive(day(2024, time.January, 2), day(2024, time.January, 1)))
}
