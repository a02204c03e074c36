package token

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"16 bytes", 16},
		{"32 bytes", 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GenerateHex(tt.length)
			if err != nil {
				t.Fatalf("GenerateHex(%d) error = %v", tt.length, err)
			}
			if len(s) != 2*tt.length {
				t.Errorf("GenerateHex(%d) length = %d, want %d", tt.length, len(s), 2*tt.length)
			}
			if strings.ToLower(s) != s {
				t.Errorf("GenerateHex(%d) = %q, want lowercase", tt.length, s)
			}
			if _, err := hex.DecodeString(s); err != nil {
				t.Errorf("GenerateHex(%d) returned invalid hex: %v", tt.length, err)
			}
		})
	}
}

func TestGenerateHex_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := GenerateHex(32)
		if err != nil {
			t.Fatalf("GenerateHex() error = %v", err)
		}
		if seen[s] {
			t.Fatal("GenerateHex() produced a duplicate")
		}
		seen[s] = true
	}
}

func TestGenerateBytes(t *testing.T) {
	b, err := GenerateBytes(24)
	if err != nil {
		t.Fatalf("GenerateBytes() error = %v", err)
	}
	if len(b) != 24 {
		t.Errorf("GenerateBytes(24) length = %d", len(b))
	}
}

func TestHash(t *testing.T) {
	// Known SHA-256 vector.
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Hash("abc"); got != want {
		t.Errorf("Hash(abc) = %q, want %q", got, want)
	}

	if Hash("token1") == Hash("token2") {
		t.Error("Hash() produced same digest for different inputs")
	}
}

func TestVerify(t *testing.T) {
	tok := "ask_live_" + strings.Repeat("ab", 32)
	digest := Hash(tok)

	if !Verify(tok, digest) {
		t.Error("Verify() returned false for correct token")
	}
	if Verify("wrong-token", digest) {
		t.Error("Verify() returned true for wrong token")
	}
	if Verify(tok, "wrong-hash") {
		t.Error("Verify() returned true for wrong hash")
	}
	if Verify("", digest) {
		t.Error("Verify() returned true for empty token")
	}
}

func BenchmarkHash(b *testing.B) {
	tok := "ask_live_" + strings.Repeat("0", 64)
	for i := 0; i < b.N; i++ {
		Hash(tok)
	}
}
