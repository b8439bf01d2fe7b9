package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/atelier/internal/schema"
)

// DefaultDebounce is the quiet period after a burst of manifest events.
const DefaultDebounce = 75 * time.Millisecond

// EventType names a catalog change.
type EventType string

const (
	EventReady   EventType = "ready"
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event carries a full merged catalog, not a diff.
type Event struct {
	Type    EventType `json:"type"`
	Catalog Result    `json:"catalog"`
}

// Callback receives watcher events on the watcher's goroutine. It must not
// call Close.
type Callback func(Event)

// Watcher live-watches a blocks directory and re-emits the merged catalog
// whenever a block manifest is added, changed or removed.
type Watcher struct {
	dir      string
	internal Result
	logger   *slog.Logger
	cb       Callback
	debounce time.Duration
	scanner  *Scanner

	fsw  *fsnotify.Watcher
	dirs map[string]struct{}
	// known holds the manifest paths present on disk; fresh the ones that
	// appeared since the last added event. Both are owned by run.
	known  map[string]struct{}
	fresh  map[string]struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu      sync.RWMutex
	current Result
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the per-event-type quiet period.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithScanner shares a Scanner (and its parse cache) with the watcher.
func WithScanner(s *Scanner) WatchOption {
	return func(w *Watcher) { w.scanner = s }
}

// Watch starts watching blocksDir recursively, creating it if needed. The
// initial scan runs on the watcher goroutine and is reported as a single
// EventReady.
func Watch(blocksDir string, internal []schema.BlockManifest, logger *slog.Logger, cb Callback, opts ...WatchOption) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		dir:      blocksDir,
		internal: Result{Manifests: internal, Errors: []ManifestError{}},
		logger:   logger,
		cb:       cb,
		debounce: DefaultDebounce,
		dirs:     make(map[string]struct{}),
		known:    make(map[string]struct{}),
		fresh:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.scanner == nil {
		w.scanner = NewScanner(DefaultCacheSize)
	}

	if err := os.MkdirAll(blocksDir, 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsw = fsw
	if err := w.addDirsRecursive(blocksDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)

	logger.Info("catalog watcher: started", slog.String("root", blocksDir))
	return w, nil
}

// Snapshot returns the most recently emitted catalog.
func (w *Watcher) Snapshot() Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close cancels pending timers and releases the filesystem watch.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		<-w.done
		err = w.fsw.Close()
		w.logger.Info("catalog watcher: stopped", slog.String("root", w.dir))
	})
	return err
}

// debounceTimer is one per-event-type timer; c is nil while idle.
type debounceTimer struct {
	timer *time.Timer
	c     <-chan time.Time
}

func (t *debounceTimer) reset(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
	} else {
		if !t.timer.Stop() {
			select {
			case <-t.timer.C:
			default:
			}
		}
		t.timer.Reset(d)
	}
	t.c = t.timer.C
}

func (t *debounceTimer) fired() { t.c = nil }

func (t *debounceTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.c = nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	w.trackManifests(w.dir, false)
	w.emit(EventReady)

	var added, updated, deleted debounceTimer
	schedule := func(kind EventType) {
		switch kind {
		case EventAdded:
			added.reset(w.debounce)
		case EventUpdated:
			updated.reset(w.debounce)
		case EventDeleted:
			deleted.reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			added.stop()
			updated.stop()
			deleted.stop()
			return

		case <-added.c:
			added.fired()
			clear(w.fresh)
			w.emit(EventAdded)
		case <-updated.c:
			updated.fired()
			w.emit(EventUpdated)
		case <-deleted.c:
			deleted.fired()
			w.emit(EventDeleted)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if kind, ok := w.classify(ev); ok {
				w.logger.Debug("catalog watcher: event",
					slog.String("path", ev.Name),
					slog.String("kind", string(kind)))
				schedule(kind)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("catalog watcher: error", slog.String("error", err.Error()))
		}
	}
}

// classify maps a raw fsnotify event to a catalog event type. New
// directories are watched and count as added when they bring a manifest;
// removed directories count as deleted. A manifest that is created or
// written counts as added only when its path was not already known, so a
// rename over an existing manifest is an update and the write that follows
// a create folds into the pending add.
func (w *Watcher) classify(ev fsnotify.Event) (EventType, bool) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirsRecursive(ev.Name); err != nil {
				w.logger.Warn("catalog watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			if w.trackManifests(ev.Name, true) > 0 {
				return EventAdded, true
			}
			return "", false
		}
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := w.dirs[ev.Name]; ok {
			w.forgetDir(ev.Name)
			return EventDeleted, true
		}
	}

	if filepath.Base(ev.Name) != ManifestFileName {
		return "", false
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if _, ok := w.fresh[ev.Name]; ok {
			return EventAdded, true
		}
		if _, ok := w.known[ev.Name]; ok {
			return EventUpdated, true
		}
		w.known[ev.Name] = struct{}{}
		w.fresh[ev.Name] = struct{}{}
		return EventAdded, true
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.known, ev.Name)
		delete(w.fresh, ev.Name)
		return EventDeleted, true
	}
	return "", false
}

// emit rescans the workspace and hands the merged catalog to the callback.
func (w *Watcher) emit(kind EventType) {
	merged := Merge(w.internal, w.scanner.Scan(w.dir))
	w.mu.Lock()
	w.current = merged
	w.mu.Unlock()

	w.logger.Debug("catalog watcher: emit",
		slog.String("kind", string(kind)),
		slog.Int("blocks", len(merged.Manifests)),
		slog.Int("errors", len(merged.Errors)))
	if w.cb != nil {
		w.cb(Event{Type: kind, Catalog: merged})
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return err
			}
			w.dirs[path] = struct{}{}
		}
		return nil
	})
}

// forgetDir drops dir and everything below it from the tracked sets.
func (w *Watcher) forgetDir(dir string) {
	prefix := dir + string(os.PathSeparator)
	under := func(p string) bool { return p == dir || strings.HasPrefix(p, prefix) }
	for d := range w.dirs {
		if under(d) {
			delete(w.dirs, d)
			_ = w.fsw.Remove(d)
		}
	}
	for p := range w.known {
		if under(p) {
			delete(w.known, p)
			delete(w.fresh, p)
		}
	}
}

// trackManifests records every manifest below dir as known, and as fresh
// when asFresh is set. It returns how many manifests were not known before.
func (w *Watcher) trackManifests(dir string, asFresh bool) int {
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ManifestFileName {
			return nil
		}
		if _, ok := w.known[path]; !ok {
			w.known[path] = struct{}{}
			n++
		}
		if asFresh {
			w.fresh[path] = struct{}{}
		}
		return nil
	})
	return n
}
