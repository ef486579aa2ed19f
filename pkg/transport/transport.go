package transport

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer receives notifications while a batch runs. Under the parallel
// strategy OperationSettled is called from several goroutines at once.
type Observer interface {
	OperationSettled(ctx context.Context, strategy Strategy, index int, outcome Outcome, duration time.Duration)
	InvocationCompleted(ctx context.Context, strategy Strategy, result *Result, duration time.Duration)
}

type options struct {
	strategy  Strategy
	logger    *zap.Logger
	observers []Observer
}

// Option configures a single Invoke call.
type Option func(*options)

// WithStrategy selects the execution strategy. Unknown values behave like
// Parallel.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = ParseStrategy(string(s))
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Invoke runs in and returns the aggregated result. Operation failures are
// reported in the Result. The returned error is non-nil only for malformed
// input or a panic under the parallel strategy.
func Invoke(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	o := options{
		strategy: DefaultStrategy,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ops, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	exec := &executor{
		strategy:  o.strategy,
		logger:    o.logger,
		observers: o.observers,
	}

	start := time.Now()
	outcomes, err := exec.run(ctx, ops)
	if err != nil {
		return nil, err
	}
	res := aggregate(outcomes)
	duration := time.Since(start)

	o.logger.Debug("invocation completed",
		zap.String("strategy", string(o.strategy)),
		zap.Int("operations", len(ops)),
		zap.Bool("has_errors", res.HasErrors),
		zap.Duration("duration", duration))

	for _, obs := range o.observers {
		obs.InvocationCompleted(ctx, o.strategy, res, duration)
	}
	return res, nil
}
