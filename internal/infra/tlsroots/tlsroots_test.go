package tlsroots

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeKeyPair writes a self-signed localhost certificate for cn and
// returns the file paths.
func writeKeyPair(t *testing.T, dir, cn string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func commonName(t *testing.T, kp *KeyPair) string {
	t.Helper()
	cert, _ := kp.GetCertificate(nil)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	return leaf.Subject.CommonName
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "gate")

	if _, err := LoadPool(certFile); err != nil {
		t.Errorf("LoadPool(cert) error = %v", err)
	}
	if _, err := LoadPool(keyFile); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("LoadPool(key) error = %v, want ErrNoCertsFound", err)
	}
	if _, err := LoadPool(filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("LoadPool(missing) should fail")
	}

	bad := filepath.Join(dir, "bad.pem")
	os.WriteFile(bad, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")}), 0o644)
	if _, err := LoadPool(bad); err == nil || errors.Is(err, ErrNoCertsFound) {
		t.Errorf("LoadPool(bad) error = %v, want parse error", err)
	}
}

func TestClientConfig(t *testing.T) {
	cfg, err := ClientConfig("")
	if err != nil || cfg != nil {
		t.Errorf("ClientConfig(\"\") = %v, %v; want nil, nil", cfg, err)
	}

	certFile, _ := writeKeyPair(t, t.TempDir(), "gate")
	cfg, err = ClientConfig(certFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootCAs == nil || cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("ClientConfig() = %+v, want roots and TLS 1.2 minimum", cfg)
	}
}

func TestNewKeyPair_Invalid(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewKeyPair(filepath.Join(dir, "a"), filepath.Join(dir, "b"), nil); err == nil {
		t.Error("NewKeyPair with missing files should fail")
	}

	certFile, keyFile := writeKeyPair(t, dir, "gate")
	if _, err := NewKeyPair(keyFile, certFile, nil); err == nil {
		t.Error("NewKeyPair with swapped files should fail")
	}
}

func TestKeyPair_ServesAndTrusts(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "gate")
	kp, err := NewKeyPair(certFile, keyFile, nil)
	if err != nil {
		t.Fatal(err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", kp.ServerConfig())
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})}
	go srv.Serve(ln)
	defer srv.Close()

	clientCfg, err := ClientConfig(certFile)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: clientCfg}}
	resp, err := client.Get("https://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET with CA file: %v", err)
	}
	resp.Body.Close()

	untrusted := &http.Client{Transport: &http.Transport{}}
	if _, err := untrusted.Get("https://" + ln.Addr().String()); err == nil {
		t.Error("GET without CA file should fail verification")
	}
}

func TestKeyPair_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")
	kp, err := NewKeyPair(certFile, keyFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	kp.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- kp.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeKeyPair(t, dir, "second")

	deadline := time.Now().Add(5 * time.Second)
	for commonName(t, kp) != "second" {
		if time.Now().After(deadline) {
			t.Fatalf("CN = %q after rewrite, want second", commonName(t, kp))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestKeyPair_ReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")
	kp, err := NewKeyPair(certFile, keyFile, nil)
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(certFile, []byte("garbage"), 0o644)
	if err := kp.Reload(); err == nil {
		t.Fatal("Reload() of garbage should fail")
	}
	if got := commonName(t, kp); got != "first" {
		t.Errorf("CN = %q, want previous certificate kept", got)
	}
}
