package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycal/internal/store"
)

func newTestMatcher(t *testing.T, fs *fakeStore) *IdentityMatcher {
	t.Helper()
	return NewIdentityMatcher(fs, testWindow(t), 2*time.Second, discardLogger())
}

func seedItem(t *testing.T, fs *fakeStore, title string, start time.Time) *store.Item {
	t.Helper()

	it := &store.Item{
		Title:      title,
		Start:      start,
		End:        start.Add(time.Hour),
		CalendarID: "personal",
	}
	require.NoError(t, fs.Save(context.Background(), it, true))

	return it
}

func TestIdentityMatcher_FastPathSkipsScan(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	it := seedItem(t, fs, "Dentist", time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))

	live, err := m.Resolve(context.Background(), RefFromItem(it))
	require.NoError(t, err)
	assert.Equal(t, it.Identifier, live.Identifier)

	// A valid identifier never falls through to the day scan.
	assert.Equal(t, 1, fs.fetchCount())
	assert.Equal(t, 0, fs.queryCount())
}

func TestIdentityMatcher_StaleIdentifierFallsBack(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	it := seedItem(t, fs, "Dentist", time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))
	cached := *it

	// The store reissues the item under a new identifier; the cached one is
	// now stale but the fingerprint still matches.
	fs.detachExternally(it.Identifier)

	live, err := m.Resolve(context.Background(), RefFromItem(&cached))
	require.NoError(t, err)
	assert.Equal(t, it.Identifier+"-reissued", live.Identifier)
	assert.Equal(t, 1, fs.queryCount())
}

func TestIdentityMatcher_DetachedItemMatchesStructurally(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	start := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	it := seedItem(t, fs, "Dentist", start)
	seedItem(t, fs, "Lunch", start.Add(3*time.Hour))

	detached := *it
	detached.Identifier = ""

	live, err := m.Resolve(context.Background(), RefFromItem(&detached))
	require.NoError(t, err)
	assert.Equal(t, it.Identifier, live.Identifier)
	assert.Equal(t, 0, fs.fetchCount())
}

func TestIdentityMatcher_ToleranceBounds(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	start := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	seedItem(t, fs, "Dentist", start)

	within := Reference{Props: Fingerprint{
		Title:      "Dentist",
		Start:      start.Add(1500 * time.Millisecond),
		End:        start.Add(time.Hour + 1500*time.Millisecond),
		CalendarID: "personal",
	}}

	_, err := m.Resolve(context.Background(), within)
	assert.NoError(t, err)

	beyond := Reference{Props: Fingerprint{
		Title:      "Dentist",
		Start:      start.Add(2500 * time.Millisecond),
		End:        start.Add(time.Hour + 2500*time.Millisecond),
		CalendarID: "personal",
	}}

	_, err = m.Resolve(context.Background(), beyond)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentityMatcher_TitleAndCalendarMustMatchExactly(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	start := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	it := seedItem(t, fs, "Dentist", start)

	wrongTitle := RefFromItem(it)
	wrongTitle.Identifier = ""
	wrongTitle.Props.Title = "dentist"

	_, err := m.Resolve(context.Background(), wrongTitle)
	assert.ErrorIs(t, err, store.ErrNotFound)

	wrongCalendar := RefFromItem(it)
	wrongCalendar.Identifier = ""
	wrongCalendar.Props.CalendarID = "work"

	_, err = m.Resolve(context.Background(), wrongCalendar)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentityMatcher_DeletedEverywhereIsNotFound(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	m := newTestMatcher(t, fs)

	it := seedItem(t, fs, "Dentist", time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))
	cached := *it

	fs.deleteExternally(it.Identifier)

	_, err := m.Resolve(context.Background(), RefFromItem(&cached))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFingerprint_NFCNormalizedTitles(t *testing.T) {
	t.Parallel()

	// "é" composed vs decomposed: same logical title.
	composed := "Café"
	decomposed := "Café"

	start := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	f := Fingerprint{Title: composed, Start: start, End: start.Add(time.Hour), CalendarID: "personal"}
	it := &store.Item{Title: decomposed, Start: start, End: start.Add(time.Hour), CalendarID: "personal"}

	assert.True(t, f.Matches(it, 2*time.Second))
}
