package backend

// State is the lifecycle state of the gated backend.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDegraded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Ready or Degraded.
func (s State) Terminal() bool {
	return s == StateReady || s == StateDegraded
}

// Mount identifies a gated transport.
type Mount int

const (
	// MountHTTP is the streamable HTTP transport under /mcp.
	MountHTTP Mount = iota
	// MountSSE is the SSE transport under /sse.
	MountSSE
)

// String returns the mount name used in metrics and logs.
func (m Mount) String() string {
	if m == MountSSE {
		return "sse"
	}
	return "mcp"
}
