// Package adaptive seals data with an AEAD cipher chosen for the host.
//
// AES-256-GCM is used where the CPU accelerates AES; ChaCha20-Poly1305
// otherwise. Keys are derived from a passphrase with Argon2id and the
// salt travels in the envelope header, so Open needs only the passphrase.
//
// Envelope layout:
//
//	magic "SGB1" | cipher id (1 byte) | salt (16 bytes) | nonce | ciphertext
//
// The header is authenticated as associated data.
package adaptive
