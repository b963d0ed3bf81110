package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports external edits to the config file so a running client can
// pick up settings changes (calendar visibility, default calendar) made by
// another process. It watches the parent directory rather than the file:
// atomic writes replace the file by rename, which would silently detach a
// file-level watch.
type Watcher struct {
	fsw    *fsnotify.Watcher
	path   string
	logger *slog.Logger
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watching %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{fsw: fsw, path: path, logger: logger}, nil
}

// Run blocks, invoking onChange for every write or rename that lands on the
// config file, until the context is canceled. Returns nil on clean shutdown.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("config file changed", slog.String("op", ev.Op.String()))
			onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("config watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
