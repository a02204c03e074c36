package adaptive

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// MinPassphraseLength is the shortest passphrase Seal accepts.
	MinPassphraseLength = 8

	saltLength = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var magic = []byte("SGB1")

var cipherIDs = map[CipherType]byte{
	CipherAESGCM:   1,
	CipherChaCha20: 2,
}

var (
	ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	ErrNotSealed          = errors.New("data is not a sealed envelope")
)

// DeriveKey stretches passphrase into a KeySize key with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeySize)
}

// IsSealed reports whether data starts with an envelope header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Seal encrypts plaintext under a key derived from passphrase using a
// fresh salt. An empty typ selects Preferred.
func Seal(plaintext, passphrase []byte, typ CipherType) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooShort
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	c, err := New(DeriveKey(passphrase, salt), typ)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(magic)+1+saltLength)
	header = append(header, magic...)
	header = append(header, cipherIDs[c.Type()])
	header = append(header, salt...)

	sealed, err := c.Encrypt(plaintext, header)
	if err != nil {
		return nil, err
	}
	return append(header, sealed...), nil
}

// Open reverses Seal.
func Open(data, passphrase []byte) ([]byte, error) {
	headerLen := len(magic) + 1 + saltLength
	if !IsSealed(data) || len(data) < headerLen {
		return nil, ErrNotSealed
	}

	var typ CipherType
	for t, id := range cipherIDs {
		if id == data[len(magic)] {
			typ = t
		}
	}
	if typ == "" {
		return nil, fmt.Errorf("unknown cipher id %d", data[len(magic)])
	}

	header := data[:headerLen]
	salt := header[len(magic)+1:]
	c, err := New(DeriveKey(passphrase, salt), typ)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(data[headerLen:], header)
}
