// Package http provides the HTTP REST API.
//
// The server exposes endpoints for:
//   - Batch submission, synchronous or async
//   - Invocation queries and cancellation
//   - Worker pool status
//   - Health checks and Prometheus metrics
//
// Errors use a single envelope: {"error": {"code": ..., "message": ...}}.
package http
