// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch.go - Re-import an export file whenever it changes on disk.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/chatwidget/internal/logging"
)

// DefaultWatchDebounce collapses the burst of events editors emit for a
// single save.
const DefaultWatchDebounce = 200 * time.Millisecond

// WatchImport calls onChange with the contents of path every time the file
// is written, until ctx is done. The parent directory is watched so that
// atomic replacements (write to temp, rename over) are seen too.
func WatchImport(ctx context.Context, path string, debounce time.Duration, onChange func(raw []byte)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger := logging.FromContext(ctx)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			raw, err := os.ReadFile(abs)
			if err != nil {
				// Renamed away mid-save; the next event brings it back
				logger.Debug("WATCH_READ_FAILED", "path", abs, "error", err)
				continue
			}
			onChange(raw)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("WATCH_ERROR", "path", abs, "error", err)
		}
	}
}
