// Package stream owns the subscription lifecycle for real-time market data:
// connect, subscribe, receive, reconnect with jittered exponential backoff,
// terminate on cancel.
//
// StartStream validates its arguments synchronously and then runs all I/O on
// the session's own goroutines; the caller keeps a handle for cancellation
// and status, and optionally observes degradation through an event callback.
// Frames flow to the sink in arrival order through a bounded queue, so a slow
// consumer can never stall the receive loop without an observable signal.
package stream
