package timewin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_InvalidZone(t *testing.T) {
	t.Parallel()

	_, err := NewConfig("Not/AZone", time.Monday)
	require.Error(t, err)
}

func TestNewConfig_InvalidWeekday(t *testing.T) {
	t.Parallel()

	_, err := NewConfig("UTC", time.Weekday(9))
	require.Error(t, err)
}

func TestDayInterval_HalfOpen(t *testing.T) {
	t.Parallel()

	cfg := MustConfig("UTC", time.Monday)

	at := time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)
	start, end := cfg.DayInterval(at)

	assert.Equal(t, time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestDayInterval_DSTSpringForward(t *testing.T) {
	t.Parallel()

	cfg := MustConfig("America/New_York", time.Sunday)

	// 2026-03-08 is the US spring-forward date: the day is 23 hours long.
	at := time.Date(2026, time.March, 8, 12, 0, 0, 0, cfg.Location())
	start, end := cfg.DayInterval(at)

	assert.Equal(t, 8, start.Day())
	assert.Equal(t, 9, end.Day())
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestMonthInterval_CoversWholeMonth(t *testing.T) {
	t.Parallel()

	cfg := MustConfig("UTC", time.Monday)

	at := time.Date(2026, time.February, 20, 8, 0, 0, 0, time.UTC)
	start, end := cfg.MonthInterval(at)

	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekInterval_RespectsFirstWeekday(t *testing.T) {
	t.Parallel()

	// 2026-03-11 is a Wednesday.
	at := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)

	monday := MustConfig("UTC", time.Monday)
	start, end := monday.WeekInterval(at)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), end)

	sunday := MustConfig("UTC", time.Sunday)
	start, end = sunday.WeekInterval(at)
	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekInterval_OnFirstWeekday(t *testing.T) {
	t.Parallel()

	cfg := MustConfig("UTC", time.Monday)

	// Already a Monday: the week starts on that same day.
	at := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)
	start, _ := cfg.WeekInterval(at)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), start)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	dayStart := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{
			name:  "fully inside",
			start: dayStart.Add(10 * time.Hour),
			end:   dayStart.Add(11 * time.Hour),
			want:  true,
		},
		{
			name:  "spans midnight into the day",
			start: dayStart.Add(-2 * time.Hour),
			end:   dayStart.Add(2 * time.Hour),
			want:  true,
		},
		{
			name:  "multi-day spanning the whole day",
			start: dayStart.AddDate(0, 0, -3),
			end:   dayEnd.AddDate(0, 0, 3),
			want:  true,
		},
		{
			name:  "ends exactly at day start",
			start: dayStart.Add(-1 * time.Hour),
			end:   dayStart,
			want:  false,
		},
		{
			name:  "starts exactly at day end",
			start: dayEnd,
			end:   dayEnd.Add(time.Hour),
			want:  false,
		},
		{
			name:  "ends exactly at day end",
			start: dayEnd.Add(-time.Hour),
			end:   dayEnd,
			want:  true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Overlaps(tc.start, tc.end, dayStart, dayEnd))
		})
	}
}
