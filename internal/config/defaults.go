package config

import "time"

// Default values for configuration options: safe starting points that work
// without any config file.
const (
	defaultTimeZone        = "Local"
	defaultFirstWeekday    = "monday"
	defaultLogLevel        = "info"
	defaultFontScale       = 1.0
	defaultTemperatureUnit = "celsius"
	defaultRetentionMonths = 3

	defaultCacheTTL          = 2 * time.Second
	defaultReloadMinInterval = 500 * time.Millisecond
	defaultReloadDelay       = 500 * time.Millisecond
	defaultMatchTolerance    = 2 * time.Second
)

// DefaultConfig returns a Config populated with all default values. Used both
// as the starting point for TOML decoding (so unset fields retain defaults)
// and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Calendar: CalendarConfig{
			TimeZone:     defaultTimeZone,
			FirstWeekday: defaultFirstWeekday,
		},
		Cache: CacheConfig{
			TTL:               defaultCacheTTL.String(),
			RetentionMonths:   defaultRetentionMonths,
			ReloadMinInterval: defaultReloadMinInterval.String(),
			ReloadDelay:       defaultReloadDelay.String(),
			MatchTolerance:    defaultMatchTolerance.String(),
		},
		Display: DisplayConfig{
			FontScale:       defaultFontScale,
			TemperatureUnit: defaultTemperatureUnit,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}
