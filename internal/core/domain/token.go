// Package domain defines the core domain models for SkillGate.
package domain

import (
	"regexp"
	"strings"

	"github.com/yndnr/skillgate-go/pkg/token"
)

// Token constants.
const (
	// DefaultTokenPrefix is the prefix for API tokens (without the trailing underscore).
	DefaultTokenPrefix = "ask_live"

	// TokenBytesLength is the number of random bytes in a token body.
	TokenBytesLength = 32

	// TokenBodyLength is the hex encoded body length (32 bytes -> 64 chars).
	TokenBodyLength = 2 * TokenBytesLength
)

var prefixPattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// ValidTokenPrefix reports whether p can be used as a token prefix.
func ValidTokenPrefix(p string) bool {
	return prefixPattern.MatchString(p)
}

// TokenFormat describes the wire format "<prefix>_<64 lowercase hex>".
type TokenFormat struct {
	prefix string // includes the trailing underscore
}

// NewTokenFormat creates a TokenFormat for the given prefix.
// An empty prefix selects DefaultTokenPrefix.
func NewTokenFormat(prefix string) TokenFormat {
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	return TokenFormat{prefix: strings.TrimSuffix(prefix, "_") + "_"}
}

// Prefix returns the prefix including the trailing underscore.
func (f TokenFormat) Prefix() string {
	if f.prefix == "" {
		return DefaultTokenPrefix + "_"
	}
	return f.prefix
}

// Length returns the total token length.
func (f TokenFormat) Length() int {
	return len(f.Prefix()) + TokenBodyLength
}

// Match reports whether s is a syntactically valid token.
// Upper-case hex is rejected.
func (f TokenFormat) Match(s string) bool {
	prefix := f.Prefix()
	if len(s) != len(prefix)+TokenBodyLength || !strings.HasPrefix(s, prefix) {
		return false
	}
	for i := len(prefix); i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Generate creates a new token and returns the plaintext and its digest.
//
// IMPORTANT: The plaintext is shown to the owner once. Never store or log it.
func (f TokenFormat) Generate() (plaintext string, digest string, err error) {
	body, err := token.GenerateHex(TokenBytesLength)
	if err != nil {
		return "", "", ErrInternalServer.WithCause(err)
	}
	plaintext = f.Prefix() + body
	return plaintext, HashToken(plaintext), nil
}

// HashToken computes the persisted digest of a token (hex SHA-256).
func HashToken(plaintext string) string {
	return token.Hash(plaintext)
}

// MaskToken masks a token for safe logging.
// Example: ask_live_3fa...9c1
func (f TokenFormat) MaskToken(s string) string {
	prefix := f.Prefix()
	if !strings.HasPrefix(s, prefix) {
		return "***REDACTED***"
	}
	body := s[len(prefix):]
	if len(body) > 6 {
		return prefix + body[:3] + "..." + body[len(body)-3:]
	}
	return prefix + "***"
}
