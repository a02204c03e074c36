package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the key length used by both ciphers.
const KeySize = 32

// ErrDecrypt is returned when authentication fails, which means a wrong
// key or a corrupted payload.
var ErrDecrypt = errors.New("decryption failed: wrong passphrase or corrupted data")

// Cipher is an AEAD with a random nonce prepended to every ciphertext.
type Cipher struct {
	typ  CipherType
	aead cipher.AEAD
}

// Preferred returns the cipher type best suited to the running host.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// New creates a cipher of the given type. An empty type selects Preferred.
func New(key []byte, typ CipherType) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d: must be %d bytes", len(key), KeySize)
	}
	if typ == "" {
		typ = Preferred()
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch typ {
	case CipherAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher type: %s", typ)
	}
	if err != nil {
		return nil, err
	}
	return &Cipher{typ: typ, aead: aead}, nil
}

// Type returns the cipher type.
func (c *Cipher) Type() CipherType {
	return c.typ
}

// Overhead returns the bytes added to each plaintext.
func (c *Cipher) Overhead() int {
	return c.aead.NonceSize() + c.aead.Overhead()
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrDecrypt
	}
	out, err := c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}
