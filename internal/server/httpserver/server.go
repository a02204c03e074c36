package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// ServerConfig configures the listener.
type ServerConfig struct {
	Addr              string
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration

	// GetCertificate supplies the serving certificate when set, taking
	// precedence over the files. Used for rotation without restart.
	GetCertificate func(*tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLS reports whether the server terminates TLS.
func (c ServerConfig) TLS() bool {
	return c.GetCertificate != nil || (c.TLSCertFile != "" && c.TLSKeyFile != "")
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        ServerConfig
}

// New creates a new HTTP server. There is no write timeout: SSE streams
// stay open for the life of a session.
func New(cfg ServerConfig, handler http.Handler) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.GetCertificate != nil {
		hs.TLSConfig = &tls.Config{
			GetCertificate: cfg.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
	}
	return &Server{httpServer: hs, cfg: cfg}
}

// Serve accepts connections on l until Shutdown, using TLS when
// configured. A clean shutdown returns nil.
func (s *Server) Serve(l net.Listener) error {
	var err error
	switch {
	case s.cfg.GetCertificate != nil:
		err = s.httpServer.ServeTLS(l, "", "")
	case s.cfg.TLS():
		err = s.httpServer.ServeTLS(l, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	default:
		err = s.httpServer.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
