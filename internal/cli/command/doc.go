// Package command defines the skillgate-cli commands.
//
// user and token commands open the credential store directly, using the
// same configuration file and SKILLGATE_* environment as the server.
// system health and system ready query a running server over HTTP.
package command
