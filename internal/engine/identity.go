package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/unicode/norm"

	"daycal/internal/store"
	"daycal/internal/timewin"
)

// Fingerprint is the structural identity of an item: exact title, owning
// calendar, and start/end within a small tolerance. It re-identifies an item
// when the store returned it without a stable identifier, or when a cached
// identifier has gone stale after store-side edits.
type Fingerprint struct {
	Title      string
	Start      time.Time
	End        time.Time
	CalendarID string
}

// Matches reports whether the live item is the same logical item: title
// matches exactly after NFC normalization, the owning calendar matches
// exactly, and start and end each differ by less than tolerance.
func (f Fingerprint) Matches(it *store.Item, tolerance time.Duration) bool {
	if norm.NFC.String(f.Title) != norm.NFC.String(it.Title) {
		return false
	}

	if f.CalendarID != it.CalendarID {
		return false
	}

	return within(f.Start, it.Start, tolerance) && within(f.End, it.End, tolerance)
}

func within(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}

	return d < tolerance
}

// Reference is a logical "this event" handle held by a caller: a possibly
// stale identifier, a structural fingerprint, or both. Cached copies carry
// both; a detached item carries only the fingerprint.
type Reference struct {
	Identifier string
	Props      Fingerprint
}

// RefFromItem builds a Reference from a cached item copy.
func RefFromItem(it *store.Item) Reference {
	return Reference{
		Identifier: it.Identifier,
		Props: Fingerprint{
			Title:      it.Title,
			Start:      it.Start,
			End:        it.End,
			CalendarID: it.CalendarID,
		},
	}
}

// IdentityMatcher recovers a live, store-owned handle for a logical item.
// A cached identifier is never trusted without a live re-fetch: another
// client can delete or detach the item at any time.
type IdentityMatcher struct {
	store     store.ExternalStore
	win       timewin.Config
	tolerance time.Duration
	logger    *slog.Logger
}

// NewIdentityMatcher creates a matcher with the given structural time
// tolerance.
func NewIdentityMatcher(st store.ExternalStore, win timewin.Config, tolerance time.Duration, logger *slog.Logger) *IdentityMatcher {
	return &IdentityMatcher{store: st, win: win, tolerance: tolerance, logger: logger}
}

// Resolve returns a live handle for the reference, or store.ErrNotFound.
//
// The identifier fast path is O(1) against the store and succeeds for the
// overwhelming majority of items; the structural scan is O(items-in-day) and
// only runs when no identifier is held or the held one went stale.
func (m *IdentityMatcher) Resolve(ctx context.Context, ref Reference) (*store.Item, error) {
	if ref.Identifier != "" {
		live, err := m.store.FetchByIdentifier(ctx, ref.Identifier)
		if err != nil {
			return nil, fmt.Errorf("engine: fetching %s: %w", ref.Identifier, err)
		}

		if live != nil {
			return live, nil
		}

		m.logger.Debug("identifier went stale, falling back to structural match",
			slog.String("identifier", ref.Identifier),
			slog.String("title", ref.Props.Title),
		)
	}

	if ref.Props.Title == "" {
		return nil, store.ErrNotFound
	}

	// Structural scan is bounded to the day of the cached start: the
	// fingerprint tolerance is seconds, so a match can only live there.
	dayStart, dayEnd := m.win.DayInterval(ref.Props.Start)

	candidates, err := m.store.Query(ctx, dayStart, dayEnd, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: scanning day for structural match: %w", err)
	}

	for i := range candidates {
		if ref.Props.Matches(&candidates[i], m.tolerance) {
			return &candidates[i], nil
		}
	}

	return nil, store.ErrNotFound
}
