// Package handler provides the HTTP response helpers and the unauthenticated
// probe endpoints for SkillGate.
//
// Every rejection the gateway writes goes through WriteError so that the
// body is always:
//
//	{"detail": "...", "code": "...", "timestamp": "<RFC3339 UTC>"}
//
// The probe endpoints are:
//
//   - GET /health: liveness, always {"status":"healthy"}
//   - GET /ready: backend readiness
package handler
