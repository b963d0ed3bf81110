package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"daycal/internal/store"
	"daycal/internal/timewin"
)

// fakeStore is an in-memory ExternalStore with call counters. It mimics the
// platform store's behaviors the engine must survive: identifiers that
// disappear after external edits, calendar-filtered queries, and asynchronous
// reminder delivery on a store-owned goroutine.
type fakeStore struct {
	mu         sync.Mutex
	auth       store.AuthorizationStatus
	calendars  []store.Calendar
	defaultID  string
	items      map[string]store.Item
	reminders  []store.Reminder
	nextID     int
	queryErr   error
	queryCalls int
	fetchCalls int
	lastQuery  []string // calendar filter of the most recent Query
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auth: store.AuthGranted,
		calendars: []store.Calendar{
			{ID: "personal", Title: "Personal", Kind: store.KindEvent, AllowsModification: true},
			{ID: "work", Title: "Work", Kind: store.KindEvent, AllowsModification: true},
			{ID: "reminders", Title: "Reminders", Kind: store.KindReminder, AllowsModification: true},
		},
		defaultID: "personal",
		items:     make(map[string]store.Item),
	}
}

func (f *fakeStore) AuthorizationStatus() store.AuthorizationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.auth
}

func (f *fakeStore) RequestAccess(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.auth == store.AuthUndetermined {
		f.auth = store.AuthGranted
	}

	return f.auth == store.AuthGranted, nil
}

func (f *fakeStore) Calendars(_ context.Context, kind store.CalendarKind) ([]store.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.Calendar

	for _, c := range f.calendars {
		if c.Kind == kind {
			out = append(out, c)
		}
	}

	return out, nil
}

func (f *fakeStore) Query(_ context.Context, start, end time.Time, calendarIDs []string) ([]store.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queryCalls++
	f.lastQuery = calendarIDs

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	allowed := make(map[string]bool, len(calendarIDs))
	for _, id := range calendarIDs {
		allowed[id] = true
	}

	var out []store.Item

	for _, it := range f.items {
		if len(calendarIDs) > 0 && !allowed[it.CalendarID] {
			continue
		}

		if timewin.Overlaps(it.Start, it.End, start, end) {
			out = append(out, it)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}

		return out[i].Identifier < out[j].Identifier
	})

	return out, nil
}

func (f *fakeStore) FetchByIdentifier(_ context.Context, id string) (*store.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls++

	it, ok := f.items[id]
	if !ok {
		return nil, nil
	}

	return &it, nil
}

func (f *fakeStore) Save(_ context.Context, item *store.Item, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if item.Identifier == "" {
		f.nextID++
		item.Identifier = fmt.Sprintf("fake-%d", f.nextID)
	}

	f.items[item.Identifier] = *item

	return nil
}

func (f *fakeStore) Remove(_ context.Context, item *store.Item, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.items[item.Identifier]; !ok {
		return store.ErrNotFound
	}

	delete(f.items, item.Identifier)

	return nil
}

func (f *fakeStore) DefaultCalendarID(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.defaultID, nil
}

func (f *fakeStore) FetchReminders(_ context.Context, _ []string, deliver func([]store.Reminder, error)) {
	f.mu.Lock()
	rs := make([]store.Reminder, len(f.reminders))
	copy(rs, f.reminders)
	f.mu.Unlock()

	go deliver(rs, nil)
}

// deleteExternally simulates another client removing an item behind the
// engine's back.
func (f *fakeStore) deleteExternally(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.items, id)
}

// detachExternally simulates a store-side edit that reissues an item under a
// different identifier, leaving any cached identifier stale.
func (f *fakeStore) detachExternally(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	it, ok := f.items[id]
	if !ok {
		return
	}

	delete(f.items, id)

	it.Identifier = id + "-reissued"
	f.items[it.Identifier] = it
}

func (f *fakeStore) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queryCalls
}

func (f *fakeStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetchCalls
}

func (f *fakeStore) lastQueryFilter() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastQuery
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
