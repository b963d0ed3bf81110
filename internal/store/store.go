package store

import (
	"context"
	"time"
)

// ExternalStore is the platform calendar/reminder backing store consumed by
// the sync engine. Implementations are trusted but not owned: there are no
// transactions, two related calls can race with edits from another client,
// and Query results must be re-fetched rather than held across mutations.
type ExternalStore interface {
	// AuthorizationStatus returns the current calendar-access permission state.
	AuthorizationStatus() AuthorizationStatus

	// RequestAccess asks the platform for calendar access. Returns whether
	// access was granted.
	RequestAccess(ctx context.Context) (bool, error)

	// Calendars lists calendars of the given kind.
	Calendars(ctx context.Context, kind CalendarKind) ([]Calendar, error)

	// Query returns every item overlapping the half-open interval
	// [start, end), restricted to the given calendars. An empty calendarIDs
	// slice means all calendars.
	Query(ctx context.Context, start, end time.Time, calendarIDs []string) ([]Item, error)

	// FetchByIdentifier returns the live item with the given identifier, or
	// (nil, nil) when no such item exists. A nil result is the signal that a
	// cached identifier has gone stale, not an error.
	FetchByIdentifier(ctx context.Context, id string) (*Item, error)

	// Save persists the item, creating it if its Identifier is empty and
	// assigning one in place. commit=false batches with a later committed save.
	Save(ctx context.Context, item *Item, commit bool) error

	// Remove deletes the item from the store.
	Remove(ctx context.Context, item *Item, commit bool) error

	// DefaultCalendarID returns the store's own default event calendar, or ""
	// when the store has none.
	DefaultCalendarID(ctx context.Context) (string, error)

	// FetchReminders loads reminders from the given lists (all lists when
	// empty) and delivers the result on a background goroutine. The caller
	// must re-join the callback onto its own coordination context before
	// touching shared state.
	FetchReminders(ctx context.Context, listIDs []string, deliver func([]Reminder, error))
}
