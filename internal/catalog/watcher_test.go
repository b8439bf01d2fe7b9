package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventRecorder collects watcher events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) count(kind EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(kind EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, dir string) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{}
	w, err := Watch(dir, Builtin(), quietLogger(), rec.record, WithDebounce(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return rec.count(EventReady) == 1
	}, "ready event not emitted")
	return rec
}

func hasBlock(ev Event, id string) bool {
	_, ok := ev.Catalog.Lookup(id)
	return ok
}

func TestWatch_ReadyIncludesBuiltinAndWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "custom", manifestJSON("custom.block.v1"))

	rec := startWatcher(t, dir)
	ev, _ := rec.last(EventReady)
	if !hasBlock(ev, "custom.block.v1") || !hasBlock(ev, "cta.banner.v1") {
		t.Fatalf("ready catalog missing blocks: %v", ev.Catalog.IDs())
	}
}

func TestWatch_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	startWatcher(t, dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("blocks dir not created: %v", err)
	}
}

func TestWatch_AddedBlock(t *testing.T) {
	dir := t.TempDir()
	rec := startWatcher(t, dir)

	writeBlock(t, dir, "fresh", manifestJSON("fresh.block.v1"))

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		ev, ok := rec.last(EventAdded)
		return ok && hasBlock(ev, "fresh.block.v1")
	}, "added event with new block not emitted")
}

func TestWatch_UpdatedManifest(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "edit", manifestJSON("edit.block.v1"))
	rec := startWatcher(t, dir)

	path := filepath.Join(dir, "edit", ManifestFileName)
	if err := os.WriteFile(path, []byte(manifestJSON("edit.block.v2")), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		ev, ok := rec.last(EventUpdated)
		return ok && hasBlock(ev, "edit.block.v2") && !hasBlock(ev, "edit.block.v1")
	}, "updated event with rewritten manifest not emitted")
}

func TestWatch_RenameOverIsUpdate(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "edit", manifestJSON("edit.block.v1"))
	rec := startWatcher(t, dir)

	tmp := filepath.Join(dir, "edit", ManifestFileName+".tmp")
	if err := os.WriteFile(tmp, []byte(manifestJSON("edit.block.v2")), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "edit", ManifestFileName)); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		ev, ok := rec.last(EventUpdated)
		return ok && hasBlock(ev, "edit.block.v2")
	}, "rename over an existing manifest not reported as updated")
	time.Sleep(150 * time.Millisecond)
	if n := rec.count(EventAdded); n != 0 {
		t.Fatalf("added events = %d, want 0", n)
	}
}

func TestWatch_NewManifestIsSingleAdd(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "late"), 0o755); err != nil {
		t.Fatal(err)
	}
	rec := startWatcher(t, dir)

	path := filepath.Join(dir, "late", ManifestFileName)
	if err := os.WriteFile(path, []byte(manifestJSON("late.block.v1")), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		ev, ok := rec.last(EventAdded)
		return ok && hasBlock(ev, "late.block.v1")
	}, "added event not emitted")
	time.Sleep(150 * time.Millisecond)
	if n := rec.count(EventUpdated); n != 0 {
		t.Fatalf("updated events = %d, want 0", n)
	}
}

func TestWatch_DeletedBlock(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "gone", manifestJSON("gone.block.v1"))
	rec := startWatcher(t, dir)

	if err := os.RemoveAll(filepath.Join(dir, "gone")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		ev, ok := rec.last(EventDeleted)
		return ok && !hasBlock(ev, "gone.block.v1")
	}, "deleted event not emitted")
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "burst", manifestJSON("burst.v0"))
	rec := &eventRecorder{}
	w, err := Watch(dir, nil, quietLogger(), rec.record, WithDebounce(300*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return rec.count(EventReady) == 1
	}, "ready event not emitted")

	path := filepath.Join(dir, "burst", ManifestFileName)
	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, []byte(manifestJSON("burst.v"+string(rune('0'+i)))), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count(EventUpdated) >= 1
	}, "no updated event after burst")
	time.Sleep(500 * time.Millisecond)

	if n := rec.count(EventUpdated); n != 1 {
		t.Fatalf("updated events = %d, want 1", n)
	}
	ev, _ := rec.last(EventUpdated)
	if !hasBlock(ev, "burst.v5") {
		t.Fatalf("debounced catalog = %v, want burst.v5", ev.Catalog.IDs())
	}
	if got := w.Snapshot().IDs(); len(got) != 1 || got[0] != "burst.v5" {
		t.Fatalf("snapshot = %v", got)
	}
}

func TestWatch_CloseIsIdempotent(t *testing.T) {
	w, err := Watch(t.TempDir(), nil, quietLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
