package readiness

import (
	"context"
	"time"
)

// Predicate reports whether the service is ready to accept requests.
//
// Every readiness check is adapted to this single shape at the boundary, so
// consumers never care whether the underlying check is a plain flag read or a
// call that blocks on I/O. A Predicate is invoked once per evaluation and its
// result is never cached.
type Predicate func(ctx context.Context) (bool, error)

// FromFunc adapts a plain synchronous check. The check runs inline on the
// calling goroutine.
func FromFunc(isReady func() bool) Predicate {
	if isReady == nil {
		return nil
	}
	return func(context.Context) (bool, error) {
		return isReady(), nil
	}
}

// FromContextFunc adapts a check that may block, e.g. probing a downstream
// dependency. The check runs on its own goroutine and the caller waits for
// either its result or ctx cancellation, whichever comes first. On
// cancellation the wait is abandoned and ctx.Err() is returned; the check
// itself keeps the same ctx and is expected to honour it.
//
// Errors and panics raised by the check reach the caller unchanged.
func FromContextFunc(isReady func(ctx context.Context) (bool, error)) Predicate {
	if isReady == nil {
		return nil
	}
	return func(ctx context.Context) (bool, error) {
		type result struct {
			ready    bool
			err      error
			panicked any
		}

		done := make(chan result, 1)
		go func() {
			var res result
			defer func() {
				if r := recover(); r != nil {
					res.panicked = r
				}
				done <- res
			}()
			res.ready, res.err = isReady(ctx)
		}()

		select {
		case res := <-done:
			if res.panicked != nil {
				panic(res.panicked)
			}
			return res.ready, res.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// Evaluate invokes p exactly once.
func Evaluate(ctx context.Context, p Predicate) (bool, error) {
	return p(ctx)
}

// Always returns a predicate with a fixed answer.
func Always(ready bool) Predicate {
	return func(context.Context) (bool, error) {
		return ready, nil
	}
}

// After returns a predicate that becomes ready once d has elapsed since start.
func After(start time.Time, d time.Duration) Predicate {
	return FromFunc(func() bool {
		return time.Since(start) >= d
	})
}

// All is ready when every predicate is ready. Predicates are evaluated in
// order and evaluation stops at the first false answer or error.
func All(preds ...Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		for _, p := range preds {
			ready, err := p(ctx)
			if err != nil || !ready {
				return false, err
			}
		}
		return true, nil
	}
}
