// Package watcher keeps a tree normalized after the initial walk: new
// entries are renamed as they appear.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fixnames/internal/output"
	"fixnames/internal/scanner"
)

// WatchConfig contains watcher settings.
type WatchConfig struct {
	DebounceMs        int      // Quiet period before a new entry is handled (default: 2000)
	StableThresholdMs int      // How long a file's size must hold still (default: 1000, 0 disables)
	IgnorePatterns    []string // Glob patterns to ignore (nil selects the defaults)
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceMs:        2000,
		StableThresholdMs: 1000,
		IgnorePatterns:    DefaultIgnorePatterns(),
	}
}

// Outcome reports what a Handler did with one path.
type Outcome struct {
	FinalPath string // path after any rename
	IsDir     bool   // FinalPath is a directory to add to the watch set
	Renamed   int
	Skipped   int
	Errors    int
}

// Handler normalizes the entry at path. Calls are serialized.
type Handler func(ctx context.Context, path string) (Outcome, error)

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	Handled  int
	Renamed  int
	Skipped  int
	Errors   int
	Duration time.Duration
}

// Watcher monitors a tree for new entries.
type Watcher struct {
	config    *WatchConfig
	handler   Handler
	filter    *FileFilter
	stability *StabilityChecker
	debouncer *Debouncer
	out       *output.Output

	fsWatcher *fsnotify.Watcher
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	// handleMu serializes handler calls and guards the counters.
	handleMu sync.Mutex
	stopped  bool
	summary  WatchSummary
}

// New creates a Watcher. A nil config selects the defaults and a nil
// Output discards messages. prune keeps the watcher out of the entries the
// walker ignores.
func New(config *WatchConfig, handler Handler, prune scanner.PruneSets, out *output.Output) *Watcher {
	if config == nil {
		config = DefaultWatchConfig()
	}
	if out == nil {
		out = output.Discard()
	}
	w := &Watcher{
		config:    config,
		handler:   handler,
		filter:    NewFileFilter(config.IgnorePatterns, prune),
		stability: NewStabilityChecker(time.Duration(config.StableThresholdMs) * time.Millisecond),
		out:       out,
		done:      make(chan struct{}),
	}
	w.debouncer = NewDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.handlePath)
	return w
}

// Start watches root and every directory below it that is not pruned.
// The watcher runs until Stop is called.
func (w *Watcher) Start(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.addTree(absRoot); err != nil {
		w.fsWatcher.Close()
		return err
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.startTime = time.Now()
	w.done = make(chan struct{})

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts the watcher down, waits for an in-flight rename and returns
// a summary of the session.
func (w *Watcher) Stop() *WatchSummary {
	close(w.done)
	w.wg.Wait()
	w.debouncer.CancelAll()
	if w.cancel != nil {
		w.cancel()
	}

	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	w.stopped = true

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	summary := w.summary
	summary.Duration = time.Since(w.startTime)
	return &summary
}

// addTree adds dir and its non-pruned subdirectories to the watch set.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.out.Warn("cannot watch %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.filter.ShouldIgnore(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			if path == dir {
				return err
			}
			w.out.Warn("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// processEvents feeds fsnotify events into the debouncer.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Create):
				w.debouncer.Add(event.Name)
			case event.Has(fsnotify.Write):
				w.debouncer.Touch(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.debouncer.Cancel(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.out.Warn("watch error: %v", err)
		}
	}
}

// handlePath runs once path has been quiet for the debounce delay.
func (w *Watcher) handlePath(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return // gone again
	}
	if w.filter.ShouldIgnore(path, info.IsDir()) {
		w.out.Verbose("ignoring %s", path)
		return
	}
	if info.Mode().IsRegular() {
		if err := w.stability.WaitForStable(w.ctx, path); err != nil {
			w.out.Verbose("not handling %s: %v", path, err)
			return
		}
	}

	w.handleMu.Lock()
	defer w.handleMu.Unlock()
	if w.stopped || w.handler == nil {
		return
	}

	outcome, err := w.handler(w.ctx, path)
	w.summary.Handled++
	w.summary.Renamed += outcome.Renamed
	w.summary.Skipped += outcome.Skipped
	w.summary.Errors += outcome.Errors
	if err != nil {
		w.summary.Errors++
		w.out.Error("handle %s: %v", path, err)
		return
	}

	if outcome.IsDir {
		if err := w.addTree(outcome.FinalPath); err != nil {
			w.out.Warn("cannot watch %s: %v", outcome.FinalPath, err)
		}
	}
}

// Config returns the watcher configuration.
func (w *Watcher) Config() *WatchConfig {
	return w.config
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (w *Watcher) IsRunning() bool {
	select {
	case <-w.done:
		return false
	default:
		return w.fsWatcher != nil
	}
}
