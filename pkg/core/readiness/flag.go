package readiness

import (
	"context"
	"sync/atomic"
)

// Flag is a single readiness bit, typically flipped by a background
// initializer and read by request goroutines. Reads and writes go through
// sync/atomic, so a Set on one goroutine is visible to every IsReady that
// happens after it.
type Flag struct {
	ready atomic.Bool
}

func (f *Flag) Set(ready bool) {
	f.ready.Store(ready)
}

func (f *Flag) IsReady() bool {
	return f.ready.Load()
}

// Predicate exposes the flag to the gate and the readiness routes.
func (f *Flag) Predicate() Predicate {
	return func(context.Context) (bool, error) {
		return f.ready.Load(), nil
	}
}
