// Package store defines the calendar item data model, the ExternalStore
// interface every engine component queries and mutates through, and a local
// SQLite-backed implementation of that interface. The external store is the
// data of record: it is shared, mutable, and non-transactional, and nothing
// read from it may be assumed stable between calls.
package store

import "time"

// AuthorizationStatus is the platform permission state for calendar access.
type AuthorizationStatus int

const (
	AuthUndetermined AuthorizationStatus = iota
	AuthDenied
	AuthGranted
)

// String returns the status name for logging.
func (s AuthorizationStatus) String() string {
	switch s {
	case AuthGranted:
		return "granted"
	case AuthDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// CalendarKind distinguishes event calendars from reminder lists.
type CalendarKind string

const (
	KindEvent    CalendarKind = "event"
	KindReminder CalendarKind = "reminder"
)

// Calendar is one calendar (or reminder list) in the external store.
type Calendar struct {
	ID                 string
	Title              string
	Color              string // hex RGB, e.g. "#1badb0"
	Kind               CalendarKind
	AllowsModification bool
}

// Item is one calendar event as returned by the external store. The engine's
// caches hold read-only copies; a copy must be treated as possibly stale the
// instant after it is read, and its Identifier may be empty (a detached item)
// or may have gone stale after store-side edits.
type Item struct {
	Identifier string // unique while present; empty for detached items
	Title      string
	Start      time.Time
	End        time.Time
	CalendarID string
	AllDay     bool
	Notes      string
	Location   string
}

// Duration returns End - Start.
func (it *Item) Duration() time.Duration {
	return it.End.Sub(it.Start)
}

// PriorityBand buckets reminder priorities for display ordering.
type PriorityBand int

const (
	PriorityNone PriorityBand = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

// String returns the band name for display.
func (p PriorityBand) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "none"
	}
}

// Reminder is one reminder as returned by the external store. Reminders are
// not month-bucketed: each load replaces the previous flat list wholesale.
type Reminder struct {
	Identifier string
	Title      string
	Due        *time.Time // nil for undated reminders
	Completed  bool
	ListID     string
	Priority   PriorityBand
}

// Valid reports whether the reminder is usable by the engine. Completed
// reminders and reminders the store returned without a stable identity are
// filtered at load time and never cached.
func (r *Reminder) Valid() bool {
	return !r.Completed && r.Identifier != "" && r.ListID != ""
}
