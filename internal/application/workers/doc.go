// Package workers implements the worker pool that runs async invocations.
//
// The pool owns a fixed number of goroutines draining a bounded job queue.
// Dispatch never blocks; callers get ErrQueueFull when the queue is at
// capacity and ErrPoolClosed after Shutdown. Job panics are recovered so a
// misbehaving job cannot take a worker down.
//
// The health monitor periodically logs worker status and reports it,
// together with the queue depth, to the metrics collector.
package workers
