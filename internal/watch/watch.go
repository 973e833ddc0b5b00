// Package watch monitors source paths for changes and triggers
// reconciliation after a quiet period. Bursts of filesystem events (an
// editor save, a bulk copy into the uploads directory) collapse into a
// single trigger.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change triggers a sync.
const DefaultDebounce = 2 * time.Second

// Watcher monitors files and directories and invokes the trigger after
// changes settle.
type Watcher struct {
	files    map[string]bool // exact file targets
	dirs     map[string]bool // directory targets, matched by prefix
	debounce time.Duration
	trigger  func(ctx context.Context)
	logger   *slog.Logger
}

// New creates a watcher over the given paths. A path that is a directory
// is watched recursively at its top level; a file path is watched through
// its parent directory so replace-style saves are seen.
func New(paths []string, debounce time.Duration, trigger func(ctx context.Context), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
	}

	for _, p := range paths {
		p = filepath.Clean(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			w.dirs[p] = true
		} else {
			w.files[p] = true
		}
	}

	return w
}

// Run watches until the context is cancelled. It returns ctx.Err() on
// cancellation and any watcher setup error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for dir := range w.watchDirs() {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			continue
		}
		w.logger.Info("watching", "dir", dir)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.trigger(ctx)
		}
	}
}

// watchDirs returns the set of directories to register: directory targets
// themselves plus the parents of file targets.
func (w *Watcher) watchDirs() map[string]bool {
	dirs := make(map[string]bool, len(w.dirs)+len(w.files))
	for dir := range w.dirs {
		dirs[dir] = true
	}
	for file := range w.files {
		dirs[filepath.Dir(file)] = true
	}
	return dirs
}

// relevant reports whether an event touches a watched target. Writes,
// creates, renames, and removals all count; chmod-only events do not.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}

	name := filepath.Clean(ev.Name)
	if w.files[name] {
		return true
	}
	for dir := range w.dirs {
		if filepath.Dir(name) == dir {
			return true
		}
	}
	return false
}
