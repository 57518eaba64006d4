package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestDayHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
	assert.Equal(t, 23, EndOfDay(ts).Hour())
	assert.True(t, IsWeekend(ts))
	assert.False(t, IsWeekend(ts.AddDate(0, 0, 2)))
	assert.Equal(t, 3, DaysBetween(ts, ts.AddDate(0, 0, 3)))
	assert.Equal(t, 24*time.Hour, HoursToDuration(24))
	assert.Equal(t, 90*time.Minute, HoursToDuration(1.5))
}
