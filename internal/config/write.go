package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// File and directory permission modes for config writes.
const (
	configFilePermissions = 0o644
	configDirPermissions  = 0o755
)

// Write persists the config to path atomically (temp file + rename), creating
// parent directories as needed. The engine calls this whenever a persisted
// setting changes: default calendar, selected-calendar set, first-run marker.
func Write(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("config: creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), configFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("config: creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("config: encoding config: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: closing temp file: %w", err)
	}

	if err := os.Chmod(tmpName, configFilePermissions); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: setting permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: replacing config file: %w", err)
	}

	return nil
}
