package httpserver

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	srv := New(ServerConfig{Addr: l.Addr().String()}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "pong")
	}))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() after Shutdown = %v, want nil", err)
	}
}

func TestServerConfig_TLS(t *testing.T) {
	tests := []struct {
		cfg  ServerConfig
		want bool
	}{
		{ServerConfig{}, false},
		{ServerConfig{TLSCertFile: "cert.pem"}, false},
		{ServerConfig{TLSCertFile: "cert.pem", TLSKeyFile: "key.pem"}, true},
		{ServerConfig{GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return nil, nil }}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.TLS(); got != tt.want {
			t.Errorf("%+v.TLS() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}
