package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	period, start := periodStart("week", now)
	assert.Equal(t, "week", period)
	assert.Equal(t, now.AddDate(0, 0, -7), start)

	period, start = periodStart("month", now)
	assert.Equal(t, "month", period)
	assert.Equal(t, now.AddDate(0, -1, 0), start)

	period, start = periodStart("year", now)
	assert.Equal(t, "year", period)
	assert.Equal(t, now.AddDate(-1, 0, 0), start)

	// Unknown periods fall back to month.
	period, start = periodStart("decade", now)
	assert.Equal(t, "month", period)
	assert.Equal(t, now.AddDate(0, -1, 0), start)
}

func TestDerivePercentages(t *testing.T) {
	rows := []CategorySpend{
		{Category: "food", Total: 600},
		{Category: "transport", Total: 300},
		{Category: "other", Total: 100},
	}

	total := derivePercentages(rows)

	assert.Equal(t, float64(1000), total)
	assert.Equal(t, 60, rows[0].Percentage)
	assert.Equal(t, 30, rows[1].Percentage)
	assert.Equal(t, 10, rows[2].Percentage)
}

func TestDerivePercentagesRounding(t *testing.T) {
	rows := []CategorySpend{
		{Category: "food", Total: 33.34},
		{Category: "transport", Total: 33.33},
		{Category: "other", Total: 33.33},
	}

	derivePercentages(rows)

	sum := 0
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Percentage, 0)
		sum += r.Percentage
	}
	// Individual rounding can push the sum a point either side of 100, but a
	// single category never exceeds 100.
	assert.InDelta(t, 100, sum, 1)
}

func TestDerivePercentagesEmpty(t *testing.T) {
	assert.Equal(t, float64(0), derivePercentages(nil))

	rows := []CategorySpend{{Category: "food", Total: 0}}
	assert.Equal(t, float64(0), derivePercentages(rows))
	assert.Equal(t, 0, rows[0].Percentage)
}
