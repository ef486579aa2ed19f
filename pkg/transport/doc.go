// Package transport runs a batch of asynchronous operations and aggregates
// their outcomes.
//
// An operation is either a Func, invoked by the executor, or a Future, a
// computation that has already been started. Operations run under one of two
// strategies:
//   - Parallel (default): every operation is started at once, then all are awaited
//   - Serial: one at a time, each receiving the previous success value as args
//
// Every failure is collected per position. Invoke only returns an error for
// malformed input or a panic under the parallel strategy.
//
// Example usage:
//
//	res, err := transport.Invoke(ctx, transport.Collection{fetchUser, fetchOrders},
//	    transport.WithStrategy(transport.Serial))
//	if err != nil {
//	    return err
//	}
//	if res.HasErrors {
//	    // inspect res.Errors
//	}
package transport
