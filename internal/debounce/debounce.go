// Package debounce coalesces bursts of calls into a single delayed call.
//
// Every Trigger cancels the pending timer and schedules a new one, so
// the wrapped function runs once, wait after the last call of a burst.
package debounce

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc and exists so
// tests can drive time by hand.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs fn once per burst of Trigger calls.
type Debouncer struct {
	wait  time.Duration
	fn    func()
	after AfterFunc

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	stopped bool
}

// New returns a Debouncer that calls fn wait after the last Trigger.
func New(wait time.Duration, fn func()) *Debouncer {
	return NewWithAfterFunc(wait, fn, stdAfterFunc)
}

func NewWithAfterFunc(wait time.Duration, fn func(), after AfterFunc) *Debouncer {
	if after == nil {
		after = stdAfterFunc
	}
	return &Debouncer{wait: wait, fn: fn, after: after}
}

// Trigger cancels any pending call and schedules a new one. With a
// non-positive wait fn runs synchronously.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.cancelLocked()
	if d.wait <= 0 {
		d.mu.Unlock()
		d.fn()
		return
	}
	d.gen++
	gen := d.gen
	d.timer = d.after(d.wait, func() { d.fire(gen) })
	d.mu.Unlock()
}

// Cancel drops the pending call, if any. It reports whether one was
// pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Flush runs the pending call immediately. It reports whether a call
// was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.cancelLocked()
	d.mu.Unlock()
	if pending {
		d.fn()
	}
	return pending
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call and turns later Triggers into no-ops.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	// Bump the generation so a timer that already fired but has not yet
	// taken the lock becomes a no-op.
	d.gen++
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Func debounces a function that takes an argument. The argument of the
// last Call in a burst is the one delivered.
type Func[T any] struct {
	d *Debouncer

	mu   sync.Mutex
	last T
}

func NewFunc[T any](wait time.Duration, fn func(T)) *Func[T] {
	return NewFuncWithAfterFunc(wait, fn, stdAfterFunc)
}

func NewFuncWithAfterFunc[T any](wait time.Duration, fn func(T), after AfterFunc) *Func[T] {
	f := &Func[T]{}
	f.d = NewWithAfterFunc(wait, func() {
		f.mu.Lock()
		v := f.last
		f.mu.Unlock()
		fn(v)
	}, after)
	return f
}

func (f *Func[T]) Call(v T) {
	f.mu.Lock()
	f.last = v
	f.mu.Unlock()
	f.d.Trigger()
}

func (f *Func[T]) Cancel() bool { return f.d.Cancel() }
func (f *Func[T]) Flush() bool  { return f.d.Flush() }
func (f *Func[T]) Stop()        { f.d.Stop() }
