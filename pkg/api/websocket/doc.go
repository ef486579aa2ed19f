// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/invocations/:id/ws to receive the step.settled
// and invocation events of one invocation while it runs.
package websocket
