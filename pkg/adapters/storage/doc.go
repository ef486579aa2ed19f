// Package storage provides invocation store implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory for tests and the run command
package storage
