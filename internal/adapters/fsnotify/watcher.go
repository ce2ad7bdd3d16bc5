// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It watches single files (the learned keyword list, the catalog) through their
// parent directory, so editors that save by rename are still seen, and debounces
// bursts of events into one callback after the file settles.
package fsnotify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before onChange fires.
const DefaultDebounce = 100 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}

	mu       sync.Mutex
	stopped  bool
	targets  map[string]func(string) // absolute file path -> callback
	dirs     map[string]bool
	timers   map[string]*time.Timer
	started  bool
	callback sync.WaitGroup
}

// NewWatcher creates a new file watcher with DefaultDebounce.
func NewWatcher() (*Watcher, error) {
	return NewWatcherWithDebounce(DefaultDebounce)
}

// NewWatcherWithDebounce creates a watcher with a custom quiet period.
func NewWatcherWithDebounce(d time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:       fw,
		debounce: d,
		done:     make(chan struct{}),
		targets:  make(map[string]func(string)),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring path. The file itself need not exist yet; its
// directory must. Watch may be called for several files.
func (w *Watcher) Watch(path string, onChange func(path string)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch %s: %s is not a directory", path, dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher stopped")
	}
	if !w.dirs[dir] {
		if err := w.fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[absPath] = onChange
	if !w.started {
		w.started = true
		go w.loop()
	}
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Errors are swallowed: fsnotify recovers automatically

		case <-w.done:
			return
		}
	}
}

// schedule (re)starts the debounce timer for a watched path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	onChange, ok := w.targets[path]
	if !ok || w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.timers, path)
		w.callback.Add(1)
		w.mu.Unlock()

		defer w.callback.Done()
		onChange(path)
	})
}

// Stop ends monitoring and releases all resources. Pending debounced
// callbacks are dropped; a callback already running is waited for.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for _, t := range w.timers {
		t.Stop()
	}
	close(w.done)
	w.mu.Unlock()

	err := w.fw.Close()
	w.callback.Wait()
	return err
}
