package store

import "errors"

// Sentinel errors shared by the store and the engine built on top of it.
// Use errors.Is(err, store.ErrNotFound) to check. Everything here is scoped
// to the single operation that raised it; nothing is fatal to the process.
var (
	// ErrNotFound means identity resolution failed: neither the cached
	// identifier nor a structural scan of the item's day produced a live match.
	ErrNotFound = errors.New("store: item not found")

	// ErrNoCalendarAvailable means no writable target calendar could be
	// resolved for a create.
	ErrNoCalendarAvailable = errors.New("store: no calendar available")

	// ErrModificationNotAllowed means the owning calendar forbids content
	// changes.
	ErrModificationNotAllowed = errors.New("store: modification not allowed")

	// ErrAuthorizationDenied gates every query and mutation: the engine must
	// not touch the store while calendar access is not granted.
	ErrAuthorizationDenied = errors.New("store: calendar access not granted")
)
