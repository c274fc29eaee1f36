// Package mailbox moves values written from asynchronous callback
// contexts (MQTT subscription handlers, scale notification goroutines)
// into the single-threaded control loop. Each slot is single-producer/
// single-consumer and last-write-wins: writes before a drain collapse,
// only the latest value matters. The consumer never observes a torn
// value because a slot hands over a whole pointer atomically.
package mailbox

import "sync/atomic"

// Slot is a one-value hand-off cell. Put may be called from any
// goroutine; Take and Dirty only from the consumer.
type Slot[T any] struct {
	v atomic.Pointer[T]
}

// Put stores a value, replacing any not-yet-consumed one.
func (s *Slot[T]) Put(v T) {
	s.v.Store(&v)
}

// Take consumes the pending value, if any, and clears the slot.
func (s *Slot[T]) Take() (T, bool) {
	p := s.v.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Dirty reports whether a value is waiting.
func (s *Slot[T]) Dirty() bool {
	return s.v.Load() != nil
}

// Box holds one slot per remotely writable brew parameter.
type Box struct {
	GoalWeight      Slot[float64]
	Momentary       Slot[bool]
	ReedSwitch      Slot[bool]
	AutoTare        Slot[bool]
	ByTimeOnly      Slot[bool]
	TargetTime      Slot[float64] // seconds
	MinShotDuration Slot[float64] // seconds
	MaxShotDuration Slot[float64] // seconds
	DripDelay       Slot[float64] // seconds
}
