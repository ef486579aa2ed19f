// Package domain holds the service-level types that wrap a transport
// invocation: batch requests, their steps, stored invocations and events.
package domain
