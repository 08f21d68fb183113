package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned by Guard when fn outlives its deadline.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started before
	// this one finished.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type guarded[T any] struct {
	val T
	err error
}

// Guard runs fn on its own goroutine and waits for it, the timeout or ctx,
// whichever comes first. A panic in fn is returned as an error. A zero
// timeout waits on ctx alone.
//
// On timeout the goroutine may still be running; its result is dropped into
// a buffered channel and discarded.
func Guard[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ch := make(chan guarded[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- guarded[T]{val: zero, err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		v, err := fn()
		ch <- guarded[T]{val: v, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case res := <-ch:
		return res.val, res.err
	case <-expired:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
