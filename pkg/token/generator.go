// Package token provides random token generation and digest utilities.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateBytes returns n bytes from the system CSPRNG.
func GenerateBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateHex returns n random bytes encoded as lowercase hex (2n characters).
func GenerateHex(n int) (string, error) {
	b, err := GenerateBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
