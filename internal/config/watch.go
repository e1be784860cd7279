// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/sumer-tui/internal/logging"
)

// WatchDebounce coalesces the burst of events an editor save produces.
const WatchDebounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and passes the result to fn.
// A file that fails to parse or validate is reported as an error and the
// caller keeps its previous config. Watching stops when ctx is done.
//
// The parent directory is watched, not the file, so atomic rename-over
// saves are seen.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	w := &fileWatcher{path: path, fn: fn}
	go w.loop(ctx, watcher)
	return nil
}

type fileWatcher struct {
	path string
	fn   func(*Config, error)

	mu       sync.Mutex
	debounce *time.Timer
	stopped  bool
}

func (w *fileWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	log := logging.Component("config")
	defer w.stop()
	defer watcher.Close()

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", w.path).Msg("config watch error")
		}
	}
}

func (w *fileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(WatchDebounce, w.reload)
}

func (w *fileWatcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	w.fn(LoadFromPath(w.path))
}

func (w *fileWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
