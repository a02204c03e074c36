// Package connection is the HTTP client the CLI uses to reach a running
// server.
package connection
