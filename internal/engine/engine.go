// Package engine implements the event synchronization, caching, and
// identity-resolution core: the rolling working-set reload, the per-month TTL
// cache behind every day view, live identity resolution before each mutation,
// and the invalidation that keeps cached months honest afterward.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"daycal/internal/config"
	"daycal/internal/phrase"
	"daycal/internal/store"
	"daycal/internal/timewin"
)

// Config holds the options for New.
type Config struct {
	Store        store.ExternalStore
	Settings     *config.Config
	SettingsPath string // empty disables settings persistence
	Window       timewin.Config
	Parser       phrase.Parser // optional; nil falls back to raw-text titles
	Logger       *slog.Logger
}

// Engine owns the month cache and the rolling working set, and is the only
// component that mutates the external store. One engine instance is shared by
// reference among all consumers; every entry point serializes on one mutex,
// which is the coordination context the surrounding UI is expected to provide.
// Background completions (delayed reloads, the store's asynchronous reminder
// delivery) re-join shared state through that same mutex before touching it.
type Engine struct {
	mu           sync.Mutex
	st           store.ExternalStore
	settings     *config.Config
	settingsPath string
	win          timewin.Config
	parser       phrase.Parser
	logger       *slog.Logger

	cache    *MonthCache
	throttle *LoadThrottle
	matcher  *IdentityMatcher

	reloadDelay time.Duration
	delayed     *time.Timer

	working   []store.Item
	reminders []store.Reminder

	subscribers []func()

	nowFunc func() time.Time // test seam
}

// Fields is the set of optional updates applied by Update. Nil pointers leave
// the corresponding field untouched.
type Fields struct {
	Title      *string
	Start      *time.Time
	End        *time.Time
	Notes      *string
	Location   *string
	CalendarID *string
	AllDay     *bool
}

// Stats summarizes engine state for status display.
type Stats struct {
	Authorization  store.AuthorizationStatus
	CachedMonths   int
	WorkingSetSize int
	ReminderCount  int
}

// New creates an Engine. The cache TTL, retention horizon, throttle spacing,
// delayed-reload interval, and structural-match tolerance all come from the
// settings; they are tunables, not load-bearing constants.
func New(cfg Config) *Engine {
	return &Engine{
		st:           cfg.Store,
		settings:     cfg.Settings,
		settingsPath: cfg.SettingsPath,
		win:          cfg.Window,
		parser:       cfg.Parser,
		logger:       cfg.Logger,
		cache:        NewMonthCache(cfg.Window, cfg.Settings.CacheTTL(), cfg.Settings.Cache.RetentionMonths),
		throttle:     NewLoadThrottle(cfg.Settings.ReloadMinInterval()),
		matcher:      NewIdentityMatcher(cfg.Store, cfg.Window, cfg.Settings.MatchTolerance(), cfg.Logger),
		reloadDelay:  cfg.Settings.ReloadDelay(),
		nowFunc:      time.Now,
	}
}

// Subscribe registers a callback invoked after every reload or mutation
// completion. Registration lasts for the engine's lifetime. Callbacks run
// outside the engine's lock and may call back into the engine.
func (e *Engine) Subscribe(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = append(e.subscribers, fn)
}

// EnsureAuthorized checks calendar access, requesting it from the platform
// when still undetermined. Every query and mutation is gated on this; the
// engine never touches the store while access is not granted.
func (e *Engine) EnsureAuthorized(ctx context.Context) error {
	switch e.st.AuthorizationStatus() {
	case store.AuthGranted:
		return nil

	case store.AuthUndetermined:
		granted, err := e.st.RequestAccess(ctx)
		if err != nil {
			return fmt.Errorf("engine: requesting calendar access: %w", err)
		}

		if !granted {
			return store.ErrAuthorizationDenied
		}

		return nil

	default:
		return store.ErrAuthorizationDenied
	}
}

// ensureAuthorized is the non-interactive gate used inside operations.
func (e *Engine) ensureAuthorized() error {
	if e.st.AuthorizationStatus() != store.AuthGranted {
		return store.ErrAuthorizationDenied
	}

	return nil
}

// Reload repopulates the rolling window (one month back, two months forward
// from now) and the reminder list, respecting the load throttle: a call
// arriving within the minimum spacing is a silent no-op, never an error.
// Events and reminders are fetched concurrently and re-joined under the
// engine lock before publication.
func (e *Engine) Reload(ctx context.Context) error {
	return e.reload(ctx, false)
}

func (e *Engine) reload(ctx context.Context, force bool) error {
	if err := e.ensureAuthorized(); err != nil {
		return err
	}

	e.mu.Lock()

	now := e.nowFunc()

	if !force && !e.throttle.ShouldLoad(now) {
		e.mu.Unlock()
		e.logger.Debug("reload throttled")

		return nil
	}

	// Consuming the slot up front also defers any reload request that
	// arrives while this one is still in flight.
	e.throttle.RecordLoad(now)

	if err := e.initSelectionLocked(ctx); err != nil {
		e.mu.Unlock()
		return err
	}

	sel, showNothing := e.selectionLocked()
	e.mu.Unlock()

	if showNothing {
		e.publish(nil, nil)
		return nil
	}

	windowStart, _ := e.win.DayInterval(now.AddDate(0, -1, 0))
	_, windowEnd := e.win.DayInterval(now.AddDate(0, 2, 0))

	var (
		items []store.Item
		rems  []store.Reminder
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetched, err := e.st.Query(gctx, windowStart, windowEnd, sel)
		if err != nil {
			return fmt.Errorf("engine: querying rolling window: %w", err)
		}

		items = fetched

		return nil
	})

	g.Go(func() error {
		fetched, err := e.fetchReminders(gctx, sel)
		if err != nil {
			return err
		}

		rems = fetched

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Debug("rolling window reloaded",
		slog.Time("window_start", windowStart),
		slog.Time("window_end", windowEnd),
		slog.Int("events", len(items)),
		slog.Int("reminders", len(rems)),
	)

	e.publish(items, rems)

	return nil
}

// fetchReminders bridges the store's callback-based reminder API into a
// synchronous call. The delivery callback runs on a store-owned goroutine;
// the channel hop is the explicit handoff back to the caller.
func (e *Engine) fetchReminders(ctx context.Context, listIDs []string) ([]store.Reminder, error) {
	type result struct {
		reminders []store.Reminder
		err       error
	}

	ch := make(chan result, 1)

	e.st.FetchReminders(ctx, listIDs, func(rs []store.Reminder, err error) {
		ch <- result{reminders: rs, err: err}
	})

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("engine: fetching reminders: %w", r.err)
		}

		return filterValidReminders(r.reminders), nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// filterValidReminders drops completed and unidentified reminders at load
// time; they are never cached.
func filterValidReminders(rs []store.Reminder) []store.Reminder {
	out := make([]store.Reminder, 0, len(rs))

	for _, r := range rs {
		if r.Valid() {
			out = append(out, r)
		}
	}

	return out
}

// publish installs a freshly fetched working set and reminder list under the
// lock, then notifies subscribers. Last writer wins: a reload superseded by a
// newer one simply overwrites with the newer result.
func (e *Engine) publish(items []store.Item, rems []store.Reminder) {
	sortItems(items)
	sortReminders(rems)

	e.mu.Lock()
	e.working = items
	e.reminders = rems
	e.mu.Unlock()

	e.notify()
}

// EventsOn returns every selected-calendar item overlapping the given day,
// sorted by start ascending with ties broken by identifier. Served from the
// month cache; a miss or TTL expiry queries the store inline for the whole
// owning month.
func (e *Engine) EventsOn(ctx context.Context, day time.Time) ([]store.Item, error) {
	if err := e.ensureAuthorized(); err != nil {
		return nil, err
	}

	e.mu.Lock()

	items, err := e.monthItemsLocked(ctx, day)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	dayStart, dayEnd := e.win.DayInterval(day)

	var out []store.Item

	for i := range items {
		if timewin.Overlaps(items[i].Start, items[i].End, dayStart, dayEnd) {
			out = append(out, items[i])
		}
	}

	e.mu.Unlock()

	sortItems(out)

	return out, nil
}

// monthItemsLocked returns the cached month bucket for day, querying the
// store on miss. Callers must hold e.mu and must not mutate the result.
func (e *Engine) monthItemsLocked(ctx context.Context, day time.Time) ([]store.Item, error) {
	monthStart := e.win.MonthStart(day)

	if bucket, ok := e.cache.Get(monthStart); ok {
		return bucket.Items, nil
	}

	if err := e.initSelectionLocked(ctx); err != nil {
		return nil, err
	}

	sel, showNothing := e.selectionLocked()
	if showNothing {
		e.cache.Put(monthStart, nil)
		return nil, nil
	}

	mStart, mEnd := e.win.MonthInterval(day)

	fetched, err := e.st.Query(ctx, mStart, mEnd, sel)
	if err != nil {
		return nil, fmt.Errorf("engine: querying month %s: %w", monthStart.Format("2006-01"), err)
	}

	e.cache.Put(monthStart, fetched)

	return fetched, nil
}

// Create saves a new event. The target calendar resolves as the explicit
// calendarID, then the configured default, then the store's own default;
// store.ErrNoCalendarAvailable if none resolves.
func (e *Engine) Create(ctx context.Context, title string, start, end time.Time, calendarID, notes string) (*store.Item, error) {
	if err := e.ensureAuthorized(); err != nil {
		return nil, err
	}

	e.mu.Lock()

	target, err := e.resolveCalendarLocked(ctx, calendarID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	item := &store.Item{
		Title:      title,
		Start:      start,
		End:        end,
		CalendarID: target,
		Notes:      notes,
	}

	if err := e.st.Save(ctx, item, true); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving new event: %w", err)
	}

	e.invalidateSpanLocked(item.Start, item.End)
	e.mu.Unlock()

	e.logger.Info("event created",
		slog.String("identifier", item.Identifier),
		slog.String("title", item.Title),
		slog.Time("start", item.Start),
	)

	if err := e.reload(ctx, false); err != nil {
		e.logger.Warn("post-create reload failed", slog.String("error", err.Error()))
	}

	e.notify()

	return item, nil
}

// fallbackEventDuration is the duration given to events created from text the
// parser could not structure.
const fallbackEventDuration = time.Hour

// CreateFromText creates an event from free text via the phrase parser. A nil
// parse is not an error: the raw text becomes the title and the event lands
// on the next full hour.
func (e *Engine) CreateFromText(ctx context.Context, text string) (*store.Item, error) {
	var parsed *phrase.ParsedEvent
	if e.parser != nil {
		parsed = e.parser.ParseEvent(text)
	}

	if parsed == nil {
		start := e.nowFunc().Truncate(time.Hour).Add(time.Hour)
		return e.Create(ctx, strings.TrimSpace(text), start, start.Add(fallbackEventDuration), "", "")
	}

	return e.Create(ctx, parsed.Title, parsed.Start, parsed.End, "", parsed.Notes)
}

// Update resolves a live handle for the reference, applies the given fields,
// and saves. The cached handle behind the reference is never written to; the
// store is re-queried immediately before mutating, so concurrent edits from
// other clients are seen rather than clobbered blind.
func (e *Engine) Update(ctx context.Context, ref Reference, f Fields) (*store.Item, error) {
	if err := e.ensureAuthorized(); err != nil {
		return nil, err
	}

	e.mu.Lock()

	live, err := e.matcher.Resolve(ctx, ref)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	oldStart, oldEnd := live.Start, live.End

	applyFields(live, f)

	if err := e.st.Save(ctx, live, true); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving update: %w", err)
	}

	// Both the old and new months go stale: a move across a month boundary
	// leaves the item missing from one bucket and present in the other.
	e.invalidateSpanLocked(oldStart, oldEnd)
	e.invalidateSpanLocked(live.Start, live.End)
	e.scheduleDelayedReloadLocked()
	e.mu.Unlock()

	e.logger.Info("event updated",
		slog.String("identifier", live.Identifier),
		slog.String("title", live.Title),
	)

	e.notify()

	return live, nil
}

// Move reschedules the event to newStart, preserving its duration exactly.
func (e *Engine) Move(ctx context.Context, ref Reference, newStart time.Time) (*store.Item, error) {
	if err := e.ensureAuthorized(); err != nil {
		return nil, err
	}

	e.mu.Lock()

	live, err := e.matcher.Resolve(ctx, ref)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	oldStart, oldEnd := live.Start, live.End
	duration := live.Duration()

	live.Start = newStart
	live.End = newStart.Add(duration)

	if err := e.st.Save(ctx, live, true); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving move: %w", err)
	}

	e.invalidateSpanLocked(oldStart, oldEnd)
	e.invalidateSpanLocked(live.Start, live.End)
	e.scheduleDelayedReloadLocked()
	e.mu.Unlock()

	e.logger.Info("event moved",
		slog.String("identifier", live.Identifier),
		slog.Time("start", live.Start),
	)

	e.notify()

	return live, nil
}

// Delete resolves a live handle and removes it from the store.
// store.ErrModificationNotAllowed when the owning calendar is read-only.
func (e *Engine) Delete(ctx context.Context, ref Reference) error {
	if err := e.ensureAuthorized(); err != nil {
		return err
	}

	e.mu.Lock()

	live, err := e.matcher.Resolve(ctx, ref)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if err := e.checkModifiableLocked(ctx, live.CalendarID); err != nil {
		e.mu.Unlock()
		return err
	}

	if err := e.st.Remove(ctx, live, true); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: removing event: %w", err)
	}

	e.invalidateSpanLocked(live.Start, live.End)
	e.scheduleDelayedReloadLocked()
	e.mu.Unlock()

	e.logger.Info("event deleted",
		slog.String("identifier", live.Identifier),
		slog.String("title", live.Title),
	)

	e.notify()

	return nil
}

// ToggleCalendarVisibility flips the calendar's membership in the selected
// set, persists the set, and drops every month bucket: visibility changes the
// query predicate itself, so no cached month can be trusted. The follow-up
// reload of events and reminders bypasses the throttle.
func (e *Engine) ToggleCalendarVisibility(ctx context.Context, calendarID string) error {
	if err := e.ensureAuthorized(); err != nil {
		return err
	}

	e.mu.Lock()

	if err := e.initSelectionLocked(ctx); err != nil {
		e.mu.Unlock()
		return err
	}

	// Build a fresh slice rather than shifting in place: snapshots of the old
	// selection may still be in flight inside a concurrent reload's query.
	sel := e.settings.Calendar.SelectedCalendars
	found := false
	next := make([]string, 0, len(sel)+1)

	for _, id := range sel {
		if id == calendarID {
			found = true
			continue
		}

		next = append(next, id)
	}

	if !found {
		next = append(next, calendarID)
	}

	e.settings.Calendar.SelectedCalendars = next

	if err := e.persistSettingsLocked(); err != nil {
		e.mu.Unlock()
		return err
	}

	e.cache.InvalidateAll()
	e.mu.Unlock()

	e.logger.Info("calendar visibility toggled",
		slog.String("calendar_id", calendarID),
		slog.Bool("visible", !found),
	)

	return e.reload(ctx, true)
}

// ApplySettings replaces the engine's settings after an external config-file
// edit. The cache, throttle, matcher, and reload delay are rebuilt so tunable
// changes (TTL, spacing, tolerance) take effect, which also drops every month
// bucket; the window is then reloaded immediately.
func (e *Engine) ApplySettings(ctx context.Context, settings *config.Config) error {
	e.mu.Lock()
	e.settings = settings
	e.cache = NewMonthCache(e.win, settings.CacheTTL(), settings.Cache.RetentionMonths)
	e.throttle = NewLoadThrottle(settings.ReloadMinInterval())
	e.matcher = NewIdentityMatcher(e.st, e.win, settings.MatchTolerance(), e.logger)
	e.reloadDelay = settings.ReloadDelay()
	e.mu.Unlock()

	return e.reload(ctx, true)
}

// Calendars lists calendars of the given kind with their visibility state.
func (e *Engine) Calendars(ctx context.Context, kind store.CalendarKind) ([]store.Calendar, []bool, error) {
	if err := e.ensureAuthorized(); err != nil {
		return nil, nil, err
	}

	cals, err := e.st.Calendars(ctx, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: listing calendars: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	visible := make([]bool, len(cals))
	for i := range cals {
		visible[i] = e.settings.IsSelected(cals[i].ID)
	}

	return cals, visible, nil
}

// Events returns a copy of the rolling-window working set.
func (e *Engine) Events() []store.Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]store.Item, len(e.working))
	copy(out, e.working)

	return out
}

// Reminders returns a copy of the current reminder list, ordered by priority
// band descending, then due instant, then title.
func (e *Engine) Reminders() []store.Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]store.Reminder, len(e.reminders))
	copy(out, e.reminders)

	return out
}

// Stats returns a snapshot of engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		Authorization:  e.st.AuthorizationStatus(),
		CachedMonths:   e.cache.Len(),
		WorkingSetSize: len(e.working),
		ReminderCount:  len(e.reminders),
	}
}

// --- internal helpers ---

// initSelectionLocked performs the one-time first-run selection: every
// calendar of both kinds becomes selected and the marker is persisted. After
// this, an explicitly empty set means "show nothing", never "show all".
func (e *Engine) initSelectionLocked(ctx context.Context) error {
	if e.settings.Calendar.Initialized {
		return nil
	}

	var all []string

	for _, kind := range []store.CalendarKind{store.KindEvent, store.KindReminder} {
		cals, err := e.st.Calendars(ctx, kind)
		if err != nil {
			return fmt.Errorf("engine: initializing calendar selection: %w", err)
		}

		for _, c := range cals {
			all = append(all, c.ID)
		}
	}

	e.settings.Calendar.SelectedCalendars = all
	e.settings.Calendar.Initialized = true

	e.logger.Info("calendar selection initialized", slog.Int("calendars", len(all)))

	return e.persistSettingsLocked()
}

// selectionLocked returns the selected calendar IDs and whether the selection
// is explicitly empty. The returned slice is a copy: callers hand it to store
// queries after releasing e.mu, while visibility toggles rewrite the
// settings-owned slice under it.
func (e *Engine) selectionLocked() (ids []string, showNothing bool) {
	sel := e.settings.Calendar.SelectedCalendars
	if len(sel) == 0 {
		return nil, true
	}

	return append([]string(nil), sel...), false
}

// resolveCalendarLocked picks the target calendar for a create.
func (e *Engine) resolveCalendarLocked(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if e.settings.Calendar.DefaultCalendar != "" {
		return e.settings.Calendar.DefaultCalendar, nil
	}

	def, err := e.st.DefaultCalendarID(ctx)
	if err != nil {
		return "", fmt.Errorf("engine: resolving default calendar: %w", err)
	}

	if def == "" {
		return "", store.ErrNoCalendarAvailable
	}

	return def, nil
}

// persistSettingsLocked writes the settings back to disk. A zero path
// disables persistence (tests and embedded use).
func (e *Engine) persistSettingsLocked() error {
	if e.settingsPath == "" {
		return nil
	}

	if err := config.Write(e.settings, e.settingsPath); err != nil {
		return fmt.Errorf("engine: persisting settings: %w", err)
	}

	return nil
}

// checkModifiableLocked returns store.ErrModificationNotAllowed when the
// calendar is known and read-only.
func (e *Engine) checkModifiableLocked(ctx context.Context, calendarID string) error {
	cals, err := e.st.Calendars(ctx, store.KindEvent)
	if err != nil {
		return fmt.Errorf("engine: checking calendar %s: %w", calendarID, err)
	}

	for _, c := range cals {
		if c.ID == calendarID && !c.AllowsModification {
			return store.ErrModificationNotAllowed
		}
	}

	return nil
}

// invalidateSpanLocked drops the month buckets touched by [start, end].
func (e *Engine) invalidateSpanLocked(start, end time.Time) {
	startMonth := e.win.MonthStart(start)
	e.cache.Invalidate(startMonth)

	if endMonth := e.win.MonthStart(end); !endMonth.Equal(startMonth) {
		e.cache.Invalidate(endMonth)
	}
}

// scheduleDelayedReloadLocked arms (or re-arms) the post-mutation reload.
// The delay coalesces bursts of edits with the store's own propagation
// latency; consistency is eventual, not immediate.
func (e *Engine) scheduleDelayedReloadLocked() {
	if e.delayed != nil {
		e.delayed.Stop()
	}

	e.delayed = time.AfterFunc(e.reloadDelay, func() {
		if err := e.reload(context.Background(), false); err != nil {
			e.logger.Warn("delayed reload failed", slog.String("error", err.Error()))
		}
	})
}

// notify invokes every subscriber outside the lock.
func (e *Engine) notify() {
	e.mu.Lock()
	subs := make([]func(), len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func applyFields(it *store.Item, f Fields) {
	if f.Title != nil {
		it.Title = *f.Title
	}

	if f.Start != nil {
		it.Start = *f.Start
	}

	if f.End != nil {
		it.End = *f.End
	}

	if f.Notes != nil {
		it.Notes = *f.Notes
	}

	if f.Location != nil {
		it.Location = *f.Location
	}

	if f.CalendarID != nil {
		it.CalendarID = *f.CalendarID
	}

	if f.AllDay != nil {
		it.AllDay = *f.AllDay
	}
}

// sortItems orders by start ascending, ties broken by identifier string
// order for deterministic rendering.
func sortItems(items []store.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}

		return items[i].Identifier < items[j].Identifier
	})
}

// sortReminders orders by priority band descending, then due instant (undated
// last), then title.
func sortReminders(rs []store.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority > rs[j].Priority
		}

		switch {
		case rs[i].Due == nil && rs[j].Due == nil:
			return rs[i].Title < rs[j].Title
		case rs[i].Due == nil:
			return false
		case rs[j].Due == nil:
			return true
		case !rs[i].Due.Equal(*rs[j].Due):
			return rs[i].Due.Before(*rs[j].Due)
		}

		return rs[i].Title < rs[j].Title
	})
}
