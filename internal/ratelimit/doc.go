// Package ratelimit implements the sliding-window request limiter that
// guards the gateway.
//
// A window admits at most Limit requests per key within the half-open
// interval (now-Window, now]. A request arriving exactly Window after an
// admitted one therefore sees that one expired. Timestamps are pruned when
// a key is evaluated, and a denied request is not recorded.
//
// Two implementations are provided:
//
//   - SlidingWindow: in-process, sharded over pkg/cmap
//   - RedisWindow: shared across gateway replicas through a Redis sorted
//     set, falling back to a local SlidingWindow when Redis fails
package ratelimit
