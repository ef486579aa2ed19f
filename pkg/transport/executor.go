package transport

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// executor runs normalized operations under a single strategy.
type executor struct {
	strategy  Strategy
	logger    *zap.Logger
	observers []Observer
}

func (e *executor) run(ctx context.Context, ops []Func) ([]Outcome, error) {
	switch e.strategy {
	case Serial:
		return e.runSerial(ctx, ops), nil
	case Parallel:
		return e.runParallel(ctx, ops)
	default:
		return e.runParallel(ctx, ops)
	}
}

// runParallel starts every operation in its own goroutine and waits for all
// of them. Each goroutine writes only its own index.
func (e *executor) runParallel(ctx context.Context, ops []Func) ([]Outcome, error) {
	outcomes := make([]Outcome, len(ops))

	var g errgroup.Group
	for i, op := range ops {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Index: i, Value: r}
				}
			}()
			outcomes[i] = e.settle(ctx, i, op, nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error("parallel operation panicked", zap.Error(err))
		return nil, err
	}
	return outcomes, nil
}

// runSerial invokes operations in order, each after the previous one has
// settled. A panic breaks the chain: the sentinel outcome is appended and
// the remaining operations are never invoked.
func (e *executor) runSerial(ctx context.Context, ops []Func) (outcomes []Outcome) {
	outcomes = make([]Outcome, 0, len(ops))

	step := 0
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("serial chain broken",
				zap.Int("step", step),
				zap.Int("skipped", len(ops)-step-1),
				zap.Any("panic", r))
			outcomes = append(outcomes, Outcome{Err: ErrSerialFetchFailure})
		}
	}()

	var args any
	for i, op := range ops {
		step = i
		o := e.settle(ctx, i, op, args)
		outcomes = append(outcomes, o)
		args = o.Value
	}
	return outcomes
}

// settle invokes one operation and records its outcome.
func (e *executor) settle(ctx context.Context, index int, op Func, args any) Outcome {
	start := time.Now()
	value, err := op(ctx, args)
	duration := time.Since(start)

	o := Outcome{Err: err, Value: value}
	if err != nil {
		o.Value = nil
	}

	e.logger.Debug("operation settled",
		zap.String("strategy", string(e.strategy)),
		zap.Int("index", index),
		zap.Bool("failed", err != nil),
		zap.Duration("duration", duration))

	for _, obs := range e.observers {
		obs.OperationSettled(ctx, e.strategy, index, o, duration)
	}
	return o
}
