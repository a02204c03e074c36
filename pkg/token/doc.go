// Package token provides random token generation and digest utilities.
//
// Tokens are hex encoded so they survive headers, URLs and shells without
// escaping. Only the SHA-256 digest of a token is ever persisted; lookups
// are done by digest and comparisons against a known digest are
// constant-time.
package token
