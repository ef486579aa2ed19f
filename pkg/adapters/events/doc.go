// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams, every subscriber sees every event
//   - memory: In-memory for tests and the run command
package events
