// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ============================================================================
// Config Watcher
// ============================================================================

// ReloadFunc is called after the config file changes. It receives the
// config path and applies whatever it reloads to the server.
type ReloadFunc func(path string)

// ConfigWatcher watches the config file and invokes a reload callback
// after changes settle. Reload failures are logged, never fatal: the
// relay keeps running on its last good configuration.
type ConfigWatcher struct {
	path     string
	reload   ReloadFunc
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewConfigWatcher creates a watcher for the given config file.
func NewConfigWatcher(path string, reload ReloadFunc) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ConfigWatcher{
		path:     path,
		reload:   reload,
		watcher:  watcher,
		debounce: 500 * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The parent directory is watched rather than
// the file itself, so editors that replace the file via rename still
// trigger a reload.
func (cw *ConfigWatcher) Watch() error {
	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		return err
	}
	go cw.processEvents()
	go cw.processPending()
	return nil
}

func (cw *ConfigWatcher) processEvents() {
	for {
		select {
		case <-cw.ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				cw.mu.Lock()
				cw.pending = time.Now()
				cw.mu.Unlock()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG_WATCH_ERROR | error=%v", err)
		}
	}
}

func (cw *ConfigWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cw.ctx.Done():
			return

		case <-ticker.C:
			cw.mu.Lock()
			due := !cw.pending.IsZero() && time.Since(cw.pending) >= cw.debounce
			if due {
				cw.pending = time.Time{}
			}
			cw.mu.Unlock()

			if due {
				log.Printf("CONFIG_RELOAD | path=%s", cw.path)
				cw.reload(cw.path)
			}
		}
	}
}

// Close stops watching and releases resources.
func (cw *ConfigWatcher) Close() error {
	cw.cancel()
	return cw.watcher.Close()
}
