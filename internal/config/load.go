package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// checkUnknownKeys rejects config keys that did not decode into any field.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// Validate checks a Config for values that would misbehave at runtime.
func Validate(cfg *Config) error {
	if _, ok := weekdayNames[cfg.Calendar.FirstWeekday]; !ok {
		return fmt.Errorf("invalid first_weekday %q", cfg.Calendar.FirstWeekday)
	}

	if cfg.Cache.RetentionMonths < 1 {
		return fmt.Errorf("retention_months must be at least 1, got %d", cfg.Cache.RetentionMonths)
	}

	for _, d := range []struct{ key, val string }{
		{"ttl", cfg.Cache.TTL},
		{"reload_min_interval", cfg.Cache.ReloadMinInterval},
		{"reload_delay", cfg.Cache.ReloadDelay},
		{"match_tolerance", cfg.Cache.MatchTolerance},
	} {
		if err := validateDuration(d.key, d.val); err != nil {
			return err
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Logging.Level)
	}

	switch cfg.Display.TemperatureUnit {
	case "celsius", "fahrenheit":
	default:
		return fmt.Errorf("invalid temperature_unit %q", cfg.Display.TemperatureUnit)
	}

	if cfg.Display.FontScale <= 0 {
		return fmt.Errorf("font_scale must be positive, got %g", cfg.Display.FontScale)
	}

	return nil
}

func validateDuration(key, val string) error {
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, val, err)
	}

	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %q", key, val)
	}

	return nil
}
