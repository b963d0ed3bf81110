// Package config implements TOML configuration loading, validation, and
// write-back for daycal. The config file doubles as the persisted settings
// store: the default calendar, the selected-calendar set, and display
// preferences are read at startup and written back whenever they change.
package config

import (
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Calendar CalendarConfig `toml:"calendar"`
	Cache    CacheConfig    `toml:"cache"`
	Display  DisplayConfig  `toml:"display"`
	Logging  LoggingConfig  `toml:"logging"`
	Store    StoreConfig    `toml:"store"`
}

// CalendarConfig holds calendar math settings and the persisted selection
// state the engine reads and writes.
type CalendarConfig struct {
	// TimeZone is an IANA zone name, or "Local" for the host zone.
	TimeZone string `toml:"time_zone"`

	// FirstWeekday is the first day of the week for week-grid math:
	// "sunday" through "saturday".
	FirstWeekday string `toml:"first_weekday"`

	// DefaultCalendar is the calendar new events land in when the caller
	// names none. Empty defers to the store's own default.
	DefaultCalendar string `toml:"default_calendar"`

	// SelectedCalendars is the set of calendar IDs the user displays. An
	// empty set means "all calendars" only while Initialized is false; after
	// initialization an explicitly empty set means "show nothing".
	SelectedCalendars []string `toml:"selected_calendars"`

	// Initialized records that the first-run calendar selection has happened.
	Initialized bool `toml:"initialized"`
}

// CacheConfig holds the engine's tunable timing constants. The defaults are
// deliberately small: short enough that a completed mutation is never visible
// as stale data for long, long enough to coalesce duplicate queries from
// back-to-back renders.
type CacheConfig struct {
	TTL               string `toml:"ttl"`                 // month bucket freshness window
	RetentionMonths   int    `toml:"retention_months"`    // eviction horizon behind "now"
	ReloadMinInterval string `toml:"reload_min_interval"` // full-reload throttle spacing
	ReloadDelay       string `toml:"reload_delay"`        // delayed post-mutation reload
	MatchTolerance    string `toml:"match_tolerance"`     // structural match time tolerance
}

// DisplayConfig holds presentation settings persisted for the rendering layer.
// The engine only passes these through; it never interprets them.
type DisplayConfig struct {
	FontScale       float64 `toml:"font_scale"`
	TemperatureUnit string  `toml:"temperature_unit"` // "celsius" or "fahrenheit"
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// StoreConfig locates the backing calendar database.
type StoreConfig struct {
	// DBPath overrides the default database location under the data dir.
	DBPath string `toml:"db_path"`
}

// Duration accessors. Validate guarantees these strings parse, so the
// accessors fall back to defaults rather than returning errors.

// CacheTTL returns the parsed month-bucket TTL.
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, defaultCacheTTL)
}

// ReloadMinInterval returns the parsed full-reload throttle spacing.
func (c *Config) ReloadMinInterval() time.Duration {
	return parseDurationOr(c.Cache.ReloadMinInterval, defaultReloadMinInterval)
}

// ReloadDelay returns the parsed post-mutation reload delay.
func (c *Config) ReloadDelay() time.Duration {
	return parseDurationOr(c.Cache.ReloadDelay, defaultReloadDelay)
}

// MatchTolerance returns the parsed structural-match time tolerance.
func (c *Config) MatchTolerance() time.Duration {
	return parseDurationOr(c.Cache.MatchTolerance, defaultMatchTolerance)
}

// FirstWeekday returns the parsed first weekday.
func (c *Config) FirstWeekday() time.Weekday {
	wd, ok := weekdayNames[c.Calendar.FirstWeekday]
	if !ok {
		return time.Monday
	}

	return wd
}

// IsSelected reports whether the calendar is in the selected set. Before
// first-run initialization every calendar is selected.
func (c *Config) IsSelected(calendarID string) bool {
	if !c.Calendar.Initialized {
		return true
	}

	for _, id := range c.Calendar.SelectedCalendars {
		if id == calendarID {
			return true
		}
	}

	return false
}

// weekdayNames maps config strings to time.Weekday values.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
