// Package tlsroots loads TLS material for the server and the CLI.
//
// KeyPair serves the gateway certificate and reloads it when the files are
// rewritten, so certificates can be rotated without dropping SSE sessions.
// ClientConfig builds the CLI's trust store from the system roots plus an
// optional CA file.
package tlsroots
