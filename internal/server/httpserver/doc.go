// Package httpserver is the SkillGate HTTP front door.
//
// Two gated mounts share one pipeline:
//
//   - /mcp: streamable HTTP MCP transport
//   - /sse: SSE MCP transport and its /sse/message endpoint
//
// Each gated request is rate limited by client IP, authenticated with a
// bearer token, held until the backend has bootstrapped and then forwarded
// to the live backend or the degraded fallback. /health and /ready bypass
// the pipeline.
package httpserver
