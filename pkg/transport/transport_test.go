package transport_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

var errOhNoes = errors.New("Oh Noes!")

func settleAfter(ctx context.Context, d time.Duration, v any, err error) (any, error) {
	select {
	case <-time.After(d):
		return v, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func asyncThing1(ctx context.Context, _ any) (any, error) {
	return settleAfter(ctx, 100*time.Millisecond, map[string]any{"foo": "bar"}, nil)
}

func asyncThing2(ctx context.Context, _ any) (any, error) {
	return settleAfter(ctx, 50*time.Millisecond, map[string]any{"baz": "boom"}, nil)
}

func asyncThing3(ctx context.Context, _ any) (any, error) {
	return settleAfter(ctx, 75*time.Millisecond, map[string]any{"val": 4}, nil)
}

// asyncThing4 doubles the previous step's val; it panics without one.
func asyncThing4(ctx context.Context, args any) (any, error) {
	val := args.(map[string]any)["val"].(int)
	return settleAfter(ctx, 20*time.Millisecond, map[string]any{"val": val * 2}, nil)
}

func asyncThingFail(ctx context.Context, _ any) (any, error) {
	return settleAfter(ctx, 50*time.Millisecond, nil, errOhNoes)
}

func start(ctx context.Context, fn transport.Func) *transport.Future {
	return transport.Go(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx, nil)
	})
}

func TestInvoke_SingleFuncResolves(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Func(asyncThing1))
	require.NoError(t, err)

	assert.False(t, res.HasErrors)
	assert.Equal(t, []error{nil}, res.Errors)
	assert.Equal(t, []any{map[string]any{"foo": "bar"}}, res.Data)
}

func TestInvoke_SingleFuncRejected(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Func(asyncThingFail))
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], errOhNoes)
	assert.Equal(t, []any{nil}, res.Data)
}

func TestInvoke_ParallelAllResolve(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThing1),
		transport.Func(asyncThing2),
	})
	require.NoError(t, err)

	assert.False(t, res.HasErrors)
	assert.Equal(t, []error{nil, nil}, res.Errors)
	assert.Equal(t, []any{
		map[string]any{"foo": "bar"},
		map[string]any{"baz": "boom"},
	}, res.Data)
}

func TestInvoke_ParallelSomeRejected(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThingFail),
		transport.Func(asyncThing1),
		transport.Func(asyncThingFail),
	})
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.Equal(t, []error{errOhNoes, nil, errOhNoes}, res.Errors)
	assert.Equal(t, []any{nil, map[string]any{"foo": "bar"}, nil}, res.Data)
}

func TestInvoke_ParallelKeepsInputOrder(t *testing.T) {
	var mu sync.Mutex
	var completed []int

	delayed := func(id int, d time.Duration) transport.Func {
		return func(ctx context.Context, _ any) (any, error) {
			v, err := settleAfter(ctx, d, id, nil)
			mu.Lock()
			completed = append(completed, id)
			mu.Unlock()
			return v, err
		}
	}

	res, err := transport.Invoke(context.Background(), transport.Collection{
		delayed(0, 100*time.Millisecond),
		delayed(1, 50*time.Millisecond),
		delayed(2, 75*time.Millisecond),
		delayed(3, 20*time.Millisecond),
	})
	require.NoError(t, err)

	assert.Equal(t, []any{0, 1, 2, 3}, res.Data)
	assert.Equal(t, []int{3, 1, 2, 0}, completed)
}

func TestInvoke_ParallelStartsEveryOperationBeforeAwaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var arrived sync.WaitGroup
	arrived.Add(3)
	rendezvous := func(ctx context.Context, args any) (any, error) {
		arrived.Done()
		done := make(chan struct{})
		go func() {
			arrived.Wait()
			close(done)
		}()
		select {
		case <-done:
			return args, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	res, err := transport.Invoke(ctx, transport.Collection{
		transport.Func(rendezvous),
		transport.Func(rendezvous),
		transport.Func(rendezvous),
	})
	require.NoError(t, err)
	assert.False(t, res.HasErrors)
}

func TestInvoke_UnknownStrategyFallsBackToParallel(t *testing.T) {
	var inFlight, peak atomic.Int32
	op := func(ctx context.Context, args any) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return settleAfter(ctx, 50*time.Millisecond, args, nil)
	}

	res, err := transport.Invoke(context.Background(),
		transport.Collection{transport.Func(op), transport.Func(op)},
		transport.WithStrategy("round-robin"))
	require.NoError(t, err)

	assert.Equal(t, []any{nil, nil}, res.Data)
	assert.Equal(t, int32(2), peak.Load())
}

func TestInvoke_SerialThreadsSuccessValues(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThing3),
		transport.Func(asyncThing4),
		transport.Func(asyncThing2),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.False(t, res.HasErrors)
	assert.Equal(t, []error{nil, nil, nil}, res.Errors)
	assert.Equal(t, []any{
		map[string]any{"val": 4},
		map[string]any{"val": 8},
		map[string]any{"baz": "boom"},
	}, res.Data)
}

func TestInvoke_SerialAttemptsEveryStepAfterFailures(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThingFail),
		transport.Func(asyncThing1),
		transport.Func(asyncThingFail),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.Equal(t, []error{errOhNoes, nil, errOhNoes}, res.Errors)
	assert.Equal(t, []any{nil, map[string]any{"foo": "bar"}, nil}, res.Data)
}

func TestInvoke_SerialPassesNilAfterFailure(t *testing.T) {
	var received []any
	record := func(_ context.Context, args any) (any, error) {
		received = append(received, args)
		return "seen", nil
	}

	_, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(record),
		transport.Func(asyncThingFail),
		transport.Func(record),
		transport.Func(record),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.Equal(t, []any{nil, nil, "seen"}, received)
}

func TestInvoke_SerialNeverOverlapsSteps(t *testing.T) {
	var inFlight atomic.Int32
	var overlapped atomic.Bool
	var order []int

	step := func(id int) transport.Func {
		return func(ctx context.Context, _ any) (any, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			defer inFlight.Add(-1)
			order = append(order, id)
			return settleAfter(ctx, 10*time.Millisecond, id, nil)
		}
	}

	res, err := transport.Invoke(context.Background(), transport.Collection{
		step(0), step(1), step(2), step(3),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.False(t, overlapped.Load())
	assert.Equal(t, []int{0, 1, 2, 3}, order)
	assert.Equal(t, []any{0, 1, 2, 3}, res.Data)
}

func TestInvoke_SerialChainBreakAppendsSentinel(t *testing.T) {
	var invoked atomic.Int32
	counted := func(ctx context.Context, args any) (any, error) {
		invoked.Add(1)
		return asyncThing1(ctx, args)
	}
	broken := func(context.Context, any) (any, error) {
		panic("chain broke")
	}

	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThing3),
		transport.Func(broken),
		transport.Func(counted),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	require.Len(t, res.Errors, 2)
	assert.NoError(t, res.Errors[0])
	assert.ErrorIs(t, res.Errors[1], transport.ErrSerialFetchFailure)
	assert.Equal(t, []any{map[string]any{"val": 4}, nil}, res.Data)
	assert.Zero(t, invoked.Load())
}

func TestInvoke_SerialFirstStepWithoutArgsBreaksChain(t *testing.T) {
	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThing4),
		transport.Func(asyncThing1),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.Equal(t, []error{transport.ErrSerialFetchFailure}, res.Errors)
	assert.Equal(t, []any{nil}, res.Data)
}

func TestInvoke_ParallelPanicIsCallLevelError(t *testing.T) {
	var finished atomic.Int32
	ok := func(ctx context.Context, args any) (any, error) {
		defer finished.Add(1)
		return settleAfter(ctx, 30*time.Millisecond, "ok", nil)
	}
	broken := func(context.Context, any) (any, error) {
		panic("boom")
	}

	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(ok),
		transport.Func(broken),
		transport.Func(ok),
	})
	require.Error(t, err)
	assert.Nil(t, res)

	var panicErr *transport.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, 1, panicErr.Index)
	assert.Equal(t, "boom", panicErr.Value)
	assert.Equal(t, int32(2), finished.Load())
}

func TestInvoke_SingleFutureResolves(t *testing.T) {
	ctx := context.Background()

	res, err := transport.Invoke(ctx, start(ctx, asyncThing1))
	require.NoError(t, err)

	assert.False(t, res.HasErrors)
	assert.Equal(t, []error{nil}, res.Errors)
	assert.Equal(t, []any{map[string]any{"foo": "bar"}}, res.Data)
}

func TestInvoke_SingleFutureRejected(t *testing.T) {
	ctx := context.Background()

	res, err := transport.Invoke(ctx, start(ctx, asyncThingFail))
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.Equal(t, []error{errOhNoes}, res.Errors)
	assert.Equal(t, []any{nil}, res.Data)
}

func TestInvoke_ParallelFutures(t *testing.T) {
	ctx := context.Background()

	res, err := transport.Invoke(ctx, transport.Collection{
		start(ctx, asyncThingFail),
		start(ctx, asyncThing1),
		start(ctx, asyncThingFail),
	})
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.Equal(t, []error{errOhNoes, nil, errOhNoes}, res.Errors)
	assert.Equal(t, []any{nil, map[string]any{"foo": "bar"}, nil}, res.Data)
}

func TestInvoke_SerialMixesFuturesAndFuncs(t *testing.T) {
	ctx := context.Background()

	var received any = "untouched"
	echo := func(_ context.Context, args any) (any, error) {
		received = args
		return args, nil
	}

	res, err := transport.Invoke(ctx, transport.Collection{
		transport.Resolved(map[string]any{"val": 4}),
		transport.Func(asyncThing4),
		transport.Rejected(errOhNoes),
		transport.Func(echo),
	}, transport.WithStrategy(transport.Serial))
	require.NoError(t, err)

	assert.Equal(t, []error{nil, nil, errOhNoes, nil}, res.Errors)
	assert.Equal(t, []any{
		map[string]any{"val": 4},
		map[string]any{"val": 8},
		nil,
		nil,
	}, res.Data)
	assert.Nil(t, received)
}

func TestInvoke_SingleItemMatchesOneElementCollection(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		item func() transport.Item
	}{
		{name: "func resolves", item: func() transport.Item { return transport.Func(asyncThing2) }},
		{name: "func rejects", item: func() transport.Item { return transport.Func(asyncThingFail) }},
		{name: "future resolves", item: func() transport.Item { return start(ctx, asyncThing2) }},
		{name: "future rejects", item: func() transport.Item { return start(ctx, asyncThingFail) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range []transport.Strategy{transport.Parallel, transport.Serial} {
				single, err := transport.Invoke(ctx, tt.item(), transport.WithStrategy(s))
				require.NoError(t, err)
				wrapped, err := transport.Invoke(ctx, transport.Collection{tt.item()}, transport.WithStrategy(s))
				require.NoError(t, err)

				assert.Equal(t, wrapped, single, "strategy %s", s)
			}
		})
	}
}

func TestInvoke_EmptyCollection(t *testing.T) {
	for _, s := range []transport.Strategy{transport.Parallel, transport.Serial} {
		res, err := transport.Invoke(context.Background(), transport.Collection{}, transport.WithStrategy(s))
		require.NoError(t, err)

		assert.False(t, res.HasErrors)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Data)
	}
}

func TestInvoke_MalformedInput(t *testing.T) {
	var nilFunc transport.Func
	var nilFuture *transport.Future

	tests := []struct {
		name string
		in   transport.Input
	}{
		{name: "nil input", in: nil},
		{name: "nil func", in: nilFunc},
		{name: "nil future", in: nilFuture},
		{name: "nil item in collection", in: transport.Collection{transport.Func(asyncThing1), nil}},
		{name: "zero future in collection", in: transport.Collection{&transport.Future{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range []transport.Strategy{transport.Parallel, transport.Serial} {
				res, err := transport.Invoke(context.Background(), tt.in, transport.WithStrategy(s))
				assert.ErrorIs(t, err, transport.ErrInvalidInput)
				assert.Nil(t, res)
			}
		})
	}
}

func TestInvoke_CancelledContextIsOperationFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	never := transport.Go(context.Background(), func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})

	res, err := transport.Invoke(ctx, transport.Collection{never, transport.Resolved("ready")})
	require.NoError(t, err)

	assert.True(t, res.HasErrors)
	assert.ErrorIs(t, res.Errors[0], context.Canceled)
	assert.Equal(t, "ready", res.Data[1])
}

type recordingObserver struct {
	mu        sync.Mutex
	settled   []int
	completed []*transport.Result
	strategy  transport.Strategy
}

func (r *recordingObserver) OperationSettled(_ context.Context, s transport.Strategy, index int, _ transport.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = s
	r.settled = append(r.settled, index)
}

func (r *recordingObserver) InvocationCompleted(_ context.Context, _ transport.Strategy, res *transport.Result, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, res)
}

func TestInvoke_NotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}

	res, err := transport.Invoke(context.Background(), transport.Collection{
		transport.Func(asyncThing3),
		transport.Func(asyncThing4),
		transport.Func(asyncThingFail),
	},
		transport.WithStrategy(transport.Serial),
		transport.WithLogger(zaptest.NewLogger(t)),
		transport.WithObserver(obs),
		transport.WithObserver(nil))
	require.NoError(t, err)

	assert.Equal(t, transport.Serial, obs.strategy)
	assert.Equal(t, []int{0, 1, 2}, obs.settled)
	require.Len(t, obs.completed, 1)
	assert.Same(t, res, obs.completed[0])
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want transport.Strategy
	}{
		{in: "serial", want: transport.Serial},
		{in: "parallel", want: transport.Parallel},
		{in: "", want: transport.Parallel},
		{in: "Serial", want: transport.Parallel},
		{in: "batch", want: transport.Parallel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, transport.ParseStrategy(tt.in))
		})
	}
}
