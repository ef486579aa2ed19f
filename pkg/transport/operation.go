package transport

import (
	"context"
	"fmt"
)

// Func is an invokable operation. Under the serial strategy args holds the
// previous operation's success value, or nil if it failed or this is the
// first step. It is always nil under the parallel strategy.
type Func func(ctx context.Context, args any) (any, error)

// Input is a single Item or a Collection of them.
type Input interface {
	items() []Item
}

// Item is one operation: a Func or a *Future.
type Item interface {
	Input
	normalize() (Func, error)
}

// Collection is an ordered batch of operations.
type Collection []Item

func (c Collection) items() []Item { return c }

func (fn Func) items() []Item { return []Item{fn} }

func (fn Func) normalize() (Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("nil func: %w", ErrInvalidInput)
	}
	return fn, nil
}

func (f *Future) items() []Item { return []Item{f} }

// normalize wraps the Future in a Func that ignores its argument.
func (f *Future) normalize() (Func, error) {
	if f == nil || f.done == nil {
		return nil, fmt.Errorf("nil future: %w", ErrInvalidInput)
	}
	return func(ctx context.Context, _ any) (any, error) {
		return f.Await(ctx)
	}, nil
}

// Normalize turns in into an ordered slice of Funcs. A single Item is
// treated like a one-element Collection. Nothing is invoked.
func Normalize(in Input) ([]Func, error) {
	if in == nil {
		return nil, fmt.Errorf("nil input: %w", ErrInvalidInput)
	}

	items := in.items()
	ops := make([]Func, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("item %d: nil item: %w", i, ErrInvalidInput)
		}
		op, err := item.normalize()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}
