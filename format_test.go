package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycal/internal/store"
)

func TestParseWhen(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"full date time", "2026-09-01 10:00", time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC), true},
		{"t separator", "2026-09-01T10:00", time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC), true},
		{"bare date", "2026-09-01", time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), true},
		{"bare clock lands today", "15:45", time.Date(2026, time.March, 14, 15, 45, 0, 0, time.UTC), true},
		{"garbage", "next tuesday-ish", time.Time{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseWhen(tt.input, now, time.UTC)
			if !tt.ok {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	got, err := parseDay("2026-03-14", time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)))

	_, err = parseDay("14/03/2026", time.UTC)
	assert.Error(t, err)
}

func TestFormatEventSpan(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	sameDay := store.Item{Start: start, End: start.Add(90 * time.Minute)}
	assert.Equal(t, "10:00–11:30", formatEventSpan(sameDay, time.UTC))

	overnight := store.Item{Start: start.Add(13 * time.Hour), End: start.Add(16 * time.Hour)}
	assert.Contains(t, formatEventSpan(overnight, time.UTC), "Mar 14 23:00")
	assert.Contains(t, formatEventSpan(overnight, time.UTC), "Mar 15 02:00")

	allDay := store.Item{Start: start, End: start.AddDate(0, 0, 1), AllDay: true}
	assert.Equal(t, "all day", formatEventSpan(allDay, time.UTC))
}

func TestLookupColor(t *testing.T) {
	t.Parallel()

	// The colors the bundled store seeds are hex RGB; they must land on a
	// terminal color, not fall through uncolored.
	assert.Same(t, calendarPalette["blue"].c, lookupColor("#2f6fde"))
	assert.Same(t, calendarPalette["orange"].c, lookupColor("#de862f"))

	// Named colors still work, case-insensitively.
	assert.Same(t, calendarPalette["red"].c, lookupColor("red"))
	assert.Same(t, calendarPalette["green"].c, lookupColor("GREEN"))

	assert.Nil(t, lookupColor("not-a-color"))
	assert.Nil(t, lookupColor(""))
}

func TestPriorityMarker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "!!!", priorityMarker(store.PriorityHigh))
	assert.Equal(t, "   ", priorityMarker(store.PriorityNone))
}

func TestPrintTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "TITLE"}, [][]string{
		{"a", "short"},
		{"longer-id", "x"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Columns align on the widest cell.
	assert.True(t, strings.HasPrefix(lines[0], "ID         "))
	assert.True(t, strings.HasPrefix(lines[2], "longer-id  "))
}
