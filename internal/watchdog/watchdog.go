// Package watchdog stops the bridge when a marker file disappears, so that
// an external supervisor can request a clean shutdown by removing it.
package watchdog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"dabbridge/internal/logger"
)

// Watchdog watches a single marker file
type Watchdog struct {
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// New starts watching the directory holding path. The file must exist.
func New(path string) (*Watchdog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve marker file: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("marker file unavailable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watching the directory survives editors and tools that replace the file
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watchdog{
		path:    abs,
		watcher: watcher,
		logger:  logger.Component("watchdog"),
	}, nil
}

// Path returns the absolute marker file path
func (w *Watchdog) Path() string {
	return w.path
}

// Run blocks until the marker file is removed or renamed, calling gone, or
// until ctx ends. The watcher is closed on return.
func (w *Watchdog) Run(ctx context.Context, gone func()) {
	defer w.watcher.Close()

	w.logger.Info().Str("file", w.path).Msg("Watching marker file")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Info().
					Str("file", w.path).
					Str("op", event.Op.String()).
					Msg("Marker file removed, shutting down")
				gone()
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}
