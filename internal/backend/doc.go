// Package backend owns the gated MCP service and its lazy bootstrap.
//
// The Initializer builds the backend at most once per lifecycle. Concurrent
// first requests all wait for the same attempt. A failed or panicking
// bootstrap leaves the gateway Degraded, serving the Fallback responder on
// every mount until Shutdown resets it.
//
// State machine:
//
//	Uninitialized -> Initializing -> Ready
//	                              -> Degraded
//	Ready | Degraded --Shutdown--> Uninitialized
package backend
