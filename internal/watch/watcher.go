// Package watch turns raw filesystem notifications into settled,
// coalesced change events. Rapid saves to one file collapse into a
// single event carrying the latest content; deletes surface as their
// own kind so downstream can forget the unit.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"specter/internal/logging"
)

// EventKind is the coalesced event type.
type EventKind int

const (
	// KindWrite covers create and modify: the file now has content.
	KindWrite EventKind = iota
	// KindRemove covers delete and rename-away.
	KindRemove
)

// Event is one settled change. Path is project-relative. Content is
// the file's bytes at emission time; nil for removes.
type Event struct {
	Path    string
	Kind    EventKind
	Content []byte
}

// PathFilter decides which paths feed the loop. The scanner implements
// it so watcher and initial scan share one set of rules.
type PathFilter interface {
	IgnoreDir(name string) bool
	IgnoreFile(relPath string) bool
}

// Watcher watches the project root recursively and emits coalesced
// events on Events().
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	filter      PathFilter
	debounceMap map[string]time.Time
	debounceDur time.Duration
	events      chan Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher over root with the given debounce window.
func NewWatcher(root string, filter PathFilter, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		watcher:     fsw,
		root:        root,
		filter:      filter,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		events:      make(chan Event, 64),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Events returns the coalesced event stream. Closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start registers the directory tree and begins the event loop.
// Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	logging.Watch("watching %s (debounce %v)", w.root, w.debounceDur)

	go w.run(ctx)
	return nil
}

// Stop halts the loop and closes the event channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
	logging.Watch("stopped")
}

// addTree registers root and every non-ignored subdirectory.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.filter.IgnoreDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Watch("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	sweep := time.NewTicker(100 * time.Millisecond)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)

		case <-sweep.C:
			w.emitSettled()
		}
	}
}

// handleEvent records the raw event in the debounce map. New
// directories are added to the watch set immediately so files created
// inside them are not missed.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.filter.IgnoreDir(filepath.Base(event.Name)) {
				w.addTree(event.Name)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	if w.filter.IgnoreFile(rel) {
		return
	}

	logging.WatchDebug("raw event %s for %s", event.Op, rel)

	// Latest event wins: repeated saves keep pushing the settle time
	// forward, so only the final state is ever emitted.
	w.mu.Lock()
	w.debounceMap[rel] = time.Now()
	w.mu.Unlock()
}

// emitSettled emits one coalesced event per path whose last raw event
// is older than the debounce window.
func (w *Watcher) emitSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.debounceMap {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, rel := range settled {
		abs := filepath.Join(w.root, filepath.FromSlash(rel))
		content, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				logging.Watch("settled remove: %s", rel)
				w.events <- Event{Path: filepath.ToSlash(rel), Kind: KindRemove}
				continue
			}
			logging.Get(logging.CategoryWatch).Error("read settled file %s: %v", rel, err)
			continue
		}
		logging.Watch("settled write: %s (%d bytes)", rel, len(content))
		w.events <- Event{Path: filepath.ToSlash(rel), Kind: KindWrite, Content: content}
	}
}
