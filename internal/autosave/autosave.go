// Package autosave coalesces bursts of save requests so only the latest
// payload is persisted.
package autosave

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a scheduled payload is saved.
const DefaultDelay = 500 * time.Millisecond

// SaveFunc persists a payload.
type SaveFunc[T any] func(ctx context.Context, payload T) error

// Debouncer delays saves until no new payload has been scheduled for the
// configured delay. Saves never run concurrently with each other.
//
// State is {pending, payload, generation}; every Schedule bumps the
// generation so a timer armed for an older payload becomes a no-op.
type Debouncer[T any] struct {
	save    SaveFunc[T]
	delay   time.Duration
	onError func(error)

	mu         sync.Mutex
	pending    bool
	payload    T
	generation uint64
	timer      *time.Timer
	closed     bool

	saveMu sync.Mutex
}

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	delay   time.Duration
	onError func(error)
}

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithErrorHandler receives errors from timer-driven saves.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// New creates a Debouncer around save.
func New[T any](save SaveFunc[T], opts ...Option) *Debouncer[T] {
	o := options{delay: DefaultDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.delay <= 0 {
		o.delay = DefaultDelay
	}
	return &Debouncer[T]{
		save:    save,
		delay:   o.delay,
		onError: o.onError,
	}
}

// Schedule replaces any pending payload and restarts the timer.
func (d *Debouncer[T]) Schedule(payload T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.payload = payload
	d.pending = true
	d.generation++
	gen := d.generation
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush stops the timer and saves the pending payload now, if there is one.
// With nothing pending it still waits for an in-flight save to finish.
func (d *Debouncer[T]) Flush(ctx context.Context) error {
	return d.run(ctx, 0)
}

// Cancel discards the pending payload without saving it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Pending reports whether a payload is waiting to be saved.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Close cancels pending work and rejects further Schedule calls. A save
// already in progress still completes.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopLocked()
}

func (d *Debouncer[T]) fire(gen uint64) {
	if err := d.run(context.Background(), gen); err != nil && d.onError != nil {
		d.onError(err)
	}
}

// take claims the pending payload. A non-zero gen must match the current
// generation, so stale timers do nothing.
func (d *Debouncer[T]) take(gen uint64) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if !d.pending || (gen != 0 && gen != d.generation) {
		return zero, false
	}
	payload := d.payload
	d.stopLocked()
	return payload, true
}

func (d *Debouncer[T]) stopLocked() {
	var zero T
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.payload = zero
	d.pending = false
}

// run claims the pending payload while holding saveMu, so payloads reach
// save in the order they were scheduled.
func (d *Debouncer[T]) run(ctx context.Context, gen uint64) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	payload, ok := d.take(gen)
	if !ok {
		return nil
	}
	return d.save(ctx, payload)
}
