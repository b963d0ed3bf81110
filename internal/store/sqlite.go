package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// SQLiteStore implements ExternalStore on an embedded SQLite database with
// WAL mode. It stands in for the platform calendar service on hosts that have
// none; access is always granted because the database is process-local.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// Prepared statements for repeated queries, grouped by domain.
	itemStmts     itemStatements
	calendarStmts calendarStatements
	reminderStmts reminderStatements
}

type itemStatements struct {
	query, fetch, upsert, remove *sql.Stmt
}

type calendarStatements struct {
	list, get, insert, defaultID *sql.Stmt
}

type reminderStatements struct {
	listAll, listByList *sql.Stmt
}

// NewSQLiteStore opens the database at dbPath, applies migrations, and
// prepares all repeated statements. Use ":memory:" for tests.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	logger.Info("opening calendar database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// In-memory databases exist per connection; a single connection keeps
	// ":memory:" coherent across statements.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// SQL statement constants, grouped by domain.
const (
	sqlItemColumns = `identifier, title, start_ns, end_ns, calendar_id,
		all_day, notes, location`

	sqlQueryItems = `SELECT ` + sqlItemColumns + ` FROM items
		WHERE start_ns < ? AND end_ns > ?`

	sqlFetchItem = `SELECT ` + sqlItemColumns + ` FROM items WHERE identifier = ?`

	sqlUpsertItem = `INSERT INTO items (` + sqlItemColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			title = excluded.title, start_ns = excluded.start_ns,
			end_ns = excluded.end_ns, calendar_id = excluded.calendar_id,
			all_day = excluded.all_day, notes = excluded.notes,
			location = excluded.location, updated_at = excluded.updated_at`

	sqlRemoveItem = `DELETE FROM items WHERE identifier = ?`

	sqlCalendarColumns = `id, title, color, kind, allows_modification`

	sqlListCalendars = `SELECT ` + sqlCalendarColumns + ` FROM calendars
		WHERE kind = ? ORDER BY title`

	sqlGetCalendar = `SELECT ` + sqlCalendarColumns + ` FROM calendars WHERE id = ?`

	sqlInsertCalendar = `INSERT INTO calendars (id, title, color, kind, allows_modification, is_default)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlDefaultCalendar = `SELECT id FROM calendars
		WHERE kind = 'event' AND is_default = 1 LIMIT 1`

	sqlReminderColumns = `identifier, title, due_ns, completed, list_id, priority`

	sqlListReminders = `SELECT ` + sqlReminderColumns + ` FROM reminders`

	sqlListRemindersByList = `SELECT ` + sqlReminderColumns + ` FROM reminders
		WHERE list_id = ?`
)

// prepareStatements prepares every repeated statement up front so malformed
// SQL fails at startup rather than mid-operation.
func (s *SQLiteStore) prepareStatements(ctx context.Context) error {
	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&s.itemStmts.query, sqlQueryItems},
		{&s.itemStmts.fetch, sqlFetchItem},
		{&s.itemStmts.upsert, sqlUpsertItem},
		{&s.itemStmts.remove, sqlRemoveItem},
		{&s.calendarStmts.list, sqlListCalendars},
		{&s.calendarStmts.get, sqlGetCalendar},
		{&s.calendarStmts.insert, sqlInsertCalendar},
		{&s.calendarStmts.defaultID, sqlDefaultCalendar},
		{&s.reminderStmts.listAll, sqlListReminders},
		{&s.reminderStmts.listByList, sqlListRemindersByList},
	}

	for _, st := range stmts {
		prepared, err := s.db.PrepareContext(ctx, st.sql)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", st.sql, err)
		}

		*st.dst = prepared
	}

	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AuthorizationStatus always reports granted: the embedded database is
// process-local and has no permission broker.
func (s *SQLiteStore) AuthorizationStatus() AuthorizationStatus {
	return AuthGranted
}

// RequestAccess is a no-op for the embedded store.
func (s *SQLiteStore) RequestAccess(_ context.Context) (bool, error) {
	return true, nil
}

// Calendars lists calendars of the given kind, ordered by title.
func (s *SQLiteStore) Calendars(ctx context.Context, kind CalendarKind) ([]Calendar, error) {
	rows, err := s.calendarStmts.list.QueryContext(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("store: listing calendars: %w", err)
	}
	defer rows.Close()

	var cals []Calendar

	for rows.Next() {
		var c Calendar
		var allows int64

		if err := rows.Scan(&c.ID, &c.Title, &c.Color, &c.Kind, &allows); err != nil {
			return nil, fmt.Errorf("store: scanning calendar: %w", err)
		}

		c.AllowsModification = allows != 0
		cals = append(cals, c)
	}

	return cals, rows.Err()
}

// AddCalendar inserts a calendar. Not part of the ExternalStore interface;
// used by bootstrap and the calendars CLI command.
func (s *SQLiteStore) AddCalendar(ctx context.Context, c Calendar, isDefault bool) error {
	_, err := s.calendarStmts.insert.ExecContext(ctx,
		c.ID, c.Title, c.Color, string(c.Kind), boolToInt(c.AllowsModification), boolToInt(isDefault))
	if err != nil {
		return fmt.Errorf("store: adding calendar %s: %w", c.ID, err)
	}

	return nil
}

// Query returns every item overlapping [start, end), restricted to the given
// calendars (all calendars when the slice is empty), ordered by start.
func (s *SQLiteStore) Query(ctx context.Context, start, end time.Time, calendarIDs []string) ([]Item, error) {
	// The calendar filter is an IN clause with a variable number of
	// placeholders, so this query cannot use a prepared statement.
	query := sqlQueryItems
	args := []any{end.UnixNano(), start.UnixNano()}

	if len(calendarIDs) > 0 {
		query += ` AND calendar_id IN (` + placeholders(len(calendarIDs)) + `)`
		for _, id := range calendarIDs {
			args = append(args, id)
		}
	}

	query += ` ORDER BY start_ns, identifier`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: querying items: %w", err)
	}
	defer rows.Close()

	var items []Item

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}

		items = append(items, *it)
	}

	return items, rows.Err()
}

// FetchByIdentifier returns the live item with the given identifier, or
// (nil, nil) when no such item exists.
func (s *SQLiteStore) FetchByIdentifier(ctx context.Context, id string) (*Item, error) {
	row := s.itemStmts.fetch.QueryRowContext(ctx, id)

	it, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return it, nil
}

// Save persists the item, assigning a fresh identifier in place when the item
// is new. The commit flag exists for platform stores that batch changes; the
// embedded store commits every call.
func (s *SQLiteStore) Save(ctx context.Context, item *Item, _ bool) error {
	if err := s.checkWritable(ctx, item.CalendarID); err != nil {
		return err
	}

	if item.Identifier == "" {
		item.Identifier = uuid.NewString()
	}

	now := time.Now().UnixNano()

	_, err := s.itemStmts.upsert.ExecContext(ctx,
		item.Identifier, item.Title, item.Start.UnixNano(), item.End.UnixNano(),
		item.CalendarID, boolToInt(item.AllDay), item.Notes, item.Location,
		now, now)
	if err != nil {
		return fmt.Errorf("store: saving item %s: %w", item.Identifier, err)
	}

	return nil
}

// Remove deletes the item. A detached item (empty identifier) cannot be
// removed directly; resolve it to a live handle first.
func (s *SQLiteStore) Remove(ctx context.Context, item *Item, _ bool) error {
	if item.Identifier == "" {
		return ErrNotFound
	}

	if err := s.checkWritable(ctx, item.CalendarID); err != nil {
		return err
	}

	res, err := s.itemStmts.remove.ExecContext(ctx, item.Identifier)
	if err != nil {
		return fmt.Errorf("store: removing item %s: %w", item.Identifier, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// DefaultCalendarID returns the seeded default event calendar, or "" when
// none is marked default.
func (s *SQLiteStore) DefaultCalendarID(ctx context.Context) (string, error) {
	var id string

	err := s.calendarStmts.defaultID.QueryRowContext(ctx).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("store: resolving default calendar: %w", err)
	}

	return id, nil
}

// FetchReminders loads reminders on a background goroutine and delivers them
// via the callback, mirroring the asynchronous platform reminder API. The
// callback runs off the caller's goroutine; callers own the re-join onto
// their coordination context.
func (s *SQLiteStore) FetchReminders(ctx context.Context, listIDs []string, deliver func([]Reminder, error)) {
	go func() {
		reminders, err := s.loadReminders(ctx, listIDs)
		deliver(reminders, err)
	}()
}

func (s *SQLiteStore) loadReminders(ctx context.Context, listIDs []string) ([]Reminder, error) {
	var reminders []Reminder

	if len(listIDs) == 0 {
		rows, err := s.reminderStmts.listAll.QueryContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("store: listing reminders: %w", err)
		}

		return appendReminders(reminders, rows)
	}

	for _, listID := range listIDs {
		rows, err := s.reminderStmts.listByList.QueryContext(ctx, listID)
		if err != nil {
			return nil, fmt.Errorf("store: listing reminders for %s: %w", listID, err)
		}

		reminders, err = appendReminders(reminders, rows)
		if err != nil {
			return nil, err
		}
	}

	return reminders, nil
}

// SaveReminder upserts a reminder row. Outside the ExternalStore interface;
// used by tests and bootstrap tooling.
func (s *SQLiteStore) SaveReminder(ctx context.Context, r *Reminder) error {
	if r.Identifier == "" {
		r.Identifier = uuid.NewString()
	}

	var due any
	if r.Due != nil {
		due = r.Due.UnixNano()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (`+sqlReminderColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			title = excluded.title, due_ns = excluded.due_ns,
			completed = excluded.completed, list_id = excluded.list_id,
			priority = excluded.priority`,
		r.Identifier, r.Title, due, boolToInt(r.Completed), r.ListID, int64(r.Priority))
	if err != nil {
		return fmt.Errorf("store: saving reminder %s: %w", r.Identifier, err)
	}

	return nil
}

// checkWritable returns ErrModificationNotAllowed when the calendar exists
// and is read-only. Unknown calendars fall through to the foreign key check.
func (s *SQLiteStore) checkWritable(ctx context.Context, calendarID string) error {
	var c Calendar
	var allows int64

	err := s.calendarStmts.get.QueryRowContext(ctx, calendarID).
		Scan(&c.ID, &c.Title, &c.Color, &c.Kind, &allows)
	if err == sql.ErrNoRows {
		return nil
	}

	if err != nil {
		return fmt.Errorf("store: checking calendar %s: %w", calendarID, err)
	}

	if allows == 0 {
		return ErrModificationNotAllowed
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanItem.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	var startNs, endNs, allDay int64

	err := row.Scan(&it.Identifier, &it.Title, &startNs, &endNs,
		&it.CalendarID, &allDay, &it.Notes, &it.Location)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("store: scanning item: %w", err)
	}

	it.Start = time.Unix(0, startNs)
	it.End = time.Unix(0, endNs)
	it.AllDay = allDay != 0

	return &it, nil
}

func appendReminders(dst []Reminder, rows *sql.Rows) ([]Reminder, error) {
	defer rows.Close()

	for rows.Next() {
		var r Reminder
		var due sql.NullInt64
		var completed, priority int64

		if err := rows.Scan(&r.Identifier, &r.Title, &due, &completed, &r.ListID, &priority); err != nil {
			return nil, fmt.Errorf("store: scanning reminder: %w", err)
		}

		if due.Valid {
			t := time.Unix(0, due.Int64)
			r.Due = &t
		}

		r.Completed = completed != 0
		r.Priority = PriorityBand(priority)
		dst = append(dst, r)
	}

	return dst, rows.Err()
}

// placeholders returns n comma-separated "?" markers for an IN clause.
func placeholders(n int) string {
	out := make([]byte, 0, 2*n)

	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}

		out = append(out, '?')
	}

	return string(out)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
