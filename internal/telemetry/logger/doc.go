// Package logger provides structured logging for SkillGate.
//
// It wraps log/slog with a small interface so components can be handed a
// scoped logger and tests can capture output:
//
//   - logger.go: construction, output format and the process-wide level
//   - context.go: per-request logger enrichment (request and MCP session IDs)
//   - redact.go: masking of bearer tokens and secret-bearing attributes
//
// The level is shared by every logger built through New, so SetLevel takes
// effect immediately on configuration reload.
package logger
