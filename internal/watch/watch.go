// Package watch re-runs an action whenever a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// Func is called with the watched path after each settled change. A returned
// error is logged and watching continues.
type Func func(ctx context.Context, path string) error

// Watcher watches one file. It watches the parent directory so that editors
// that save by renaming a temporary file are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange Func
	logger   *slog.Logger
	ready    chan struct{}
	once     sync.Once
}

// New creates a Watcher for path. A zero debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, onChange Func, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With("component", "watch", "path", abs),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the first Run registers its directory watch.
// A Watcher may be run again after Run returns.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.once.Do(func() { close(w.ready) })
	w.logger.Info("watching for changes")

	// Stopped until the first matching event; Stop leaves no stale tick in C.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watch stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug("fsnotify", "event", event.Op.String())
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		case <-timer.C:
			if err := w.onChange(ctx, w.path); err != nil {
				w.logger.Warn("change handler failed", "error", err)
			}
		}
	}
}
