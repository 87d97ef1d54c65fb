package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KeyFileWatcher watches a credential key file for changes and delivers the
// re-read key list to a reload callback. It implements debouncing to prevent
// reload storms when editors write the file in several steps.
//
// The watcher monitors the file's parent directory rather than the file
// itself: rename-based saves replace the file node, which would silently
// detach a direct watch.
type KeyFileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	path     string
	debounce *Debouncer

	// State
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewKeyFileWatcher creates a watcher for the key file at path. The debounce
// interval controls how long the watcher waits after the last change before
// reloading; zero selects DefaultWatchDebounce.
func NewKeyFileWatcher(path string, debounce time.Duration, logger *slog.Logger) (*KeyFileWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("key file path is required")
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &KeyFileWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "keyfile_watcher"),
		path:     filepath.Clean(path),
		debounce: NewDebouncer(debounce),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching for key file changes and invokes onReload with the
// re-read key list after each change. This is a blocking operation that runs
// until the context is cancelled or Stop is called.
//
// Reload failures (unreadable or empty file) are logged and watching
// continues with the previous keys in effect.
func (w *KeyFileWatcher) Watch(ctx context.Context, onReload func(keys []string) error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	// Watch the parent directory so rename-based saves stay visible
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch key file directory: %w", err)
	}

	w.logger.Info("Key file watcher started",
		"path", w.path,
	)

	// Event processing loop
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Key file watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("Key file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("Key file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			// Debounce and trigger reload
			w.debounce.Trigger(func() {
				w.reload(onReload)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}

			w.logger.Error("Key file watcher error", "error", err)
			// Continue watching despite errors
		}
	}
}

// Stop stops the key file watcher.
func (w *KeyFileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	// Signal stop
	close(w.stopCh)

	// Wait for watcher to stop
	<-w.doneCh

	// Stop debouncer
	w.debounce.Stop()

	// Close fsnotify watcher
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	return nil
}

// IsRunning reports whether the watcher loop is active.
func (w *KeyFileWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// reload re-reads the key file and hands the keys to the callback.
func (w *KeyFileWatcher) reload(onReload func(keys []string) error) {
	keys, err := LoadKeyFile(w.path)
	if err != nil {
		w.logger.Error("Key file reload failed",
			"path", w.path,
			"error", err,
		)
		return
	}

	w.logger.Info("Reloading credentials",
		"path", w.path,
		"key_count", len(keys),
	)

	if err := onReload(keys); err != nil {
		w.logger.Error("Credential reload callback failed",
			"error", err,
		)
	}
}

// shouldProcessEvent determines if an event should trigger a reload.
func (w *KeyFileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	// Skip permission-only changes
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}

	// Only the watched file matters; the directory watch sees siblings too
	return filepath.Clean(event.Name) == w.path
}

// Debouncer implements event debouncing to prevent reload storms.
// It collects rapid events and triggers the callback only after a quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger triggers the debouncer with a new event.
// The callback will be called after the debounce interval if no new events occur.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Store the callback
	d.callback = callback

	// Reset or create timer
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop stops the debouncer and cancels any pending callbacks.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
