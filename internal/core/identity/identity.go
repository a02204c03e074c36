// Package identity carries the authenticated caller through a request context.
//
// A binding is released when the request completes. After release, lookups
// through any context derived from the bound one report no identity, so a
// goroutine that outlives the request cannot act as the caller.
package identity

import (
	"context"
	"sync/atomic"
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID  string
	TokenID string
}

// IsZero reports whether id carries no principal.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

type contextKey string

const holderKey contextKey = "skillgate.identity"

type holder struct {
	id atomic.Pointer[Identity]
}

// Bind attaches id to ctx. The returned release func clears the binding and
// is safe to call more than once.
func Bind(ctx context.Context, id Identity) (context.Context, func()) {
	h := &holder{}
	h.id.Store(&id)
	return context.WithValue(ctx, holderKey, h), func() { h.id.Store(nil) }
}

// FromContext returns the identity bound to ctx, if it is still live.
func FromContext(ctx context.Context) (Identity, bool) {
	h, ok := ctx.Value(holderKey).(*holder)
	if !ok {
		return Identity{}, false
	}
	id := h.id.Load()
	if id == nil {
		return Identity{}, false
	}
	return *id, true
}

// UserID returns the bound user ID or "".
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}
