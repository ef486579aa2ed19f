package transport

import (
	"context"
	"fmt"
)

// Future is a computation that has already been started and settles once
// with either a value or an error.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Go starts fn in its own goroutine and returns its Future. A panic in fn
// settles the Future with an error.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.value, f.err = nil, fmt.Errorf("future panicked: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a Future already settled with v.
func Resolved(v any) *Future {
	f := &Future{done: make(chan struct{}), value: v}
	close(f.done)
	return f
}

// Rejected returns a Future already settled with err.
func Rejected(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done is closed once the Future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done. A Future may be
// awaited any number of times.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
