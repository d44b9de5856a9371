// Package slot provides edge-triggered, cross-goroutine signals. A producer
// raises a slot without ever blocking; the control goroutine drains it once
// per tick. Raising a slot that has not been drained yet overwrites the
// previous value, so bursts of the same signal coalesce into one delivery.
package slot

import "sync/atomic"

// Flag is a payload-free slot.
type Flag struct {
	v atomic.Bool
}

// Raise marks the flag as pending.
func (f *Flag) Raise() {
	f.v.Store(true)
}

// Drain reports whether the flag was pending and clears it in the same
// atomic operation.
func (f *Flag) Drain() bool {
	return f.v.Swap(false)
}

// Pending reports whether the flag is raised without consuming it.
func (f *Flag) Pending() bool {
	return f.v.Load()
}

// Slot is a last-write-wins cell carrying a payload.
type Slot[T any] struct {
	v atomic.Pointer[T]
}

// Raise stores payload, replacing any value that has not been drained.
func (s *Slot[T]) Raise(payload T) {
	s.v.Store(&payload)
}

// Drain returns the pending payload, if any, and clears the slot.
func (s *Slot[T]) Drain() (T, bool) {
	p := s.v.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Pending reports whether a payload is waiting without consuming it.
func (s *Slot[T]) Pending() bool {
	return s.v.Load() != nil
}
