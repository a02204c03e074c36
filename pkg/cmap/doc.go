// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash. Each shard has its own RWMutex, so operations on keys in different
// shards never contend.
//
// Usage:
//
//	m := cmap.New[*window]()
//	m.Update("10.0.0.1", func(w *window, ok bool) *window { ... })
//	removed := m.RemoveIf(func(_ string, w *window) bool { return w.empty() })
//
// Update, Upsert and RemoveIf run their callbacks under the shard's write
// lock. Callbacks must not call back into the same map.
package cmap
