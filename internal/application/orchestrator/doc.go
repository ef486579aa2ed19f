// Package orchestrator turns batch requests into transport invocations.
//
// The orchestrator manager coordinates an invocation by:
//   - Validating the batch and resolving its strategy
//   - Building one transport operation per step
//   - Running the batch inline or on the worker pool
//   - Persisting the invocation and its aggregated result
//   - Publishing submitted, step.settled and completed events
package orchestrator
