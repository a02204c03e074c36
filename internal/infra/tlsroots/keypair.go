package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor or cert-manager
// produces for one rotation.
const DefaultDebounce = 200 * time.Millisecond

// KeyPair holds the current serving certificate.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	cert atomic.Pointer[tls.Certificate]
}

// NewKeyPair loads certFile and keyFile.
func NewKeyPair(certFile, keyFile string, logger *slog.Logger) (*KeyPair, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kp := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger.With("component", "tls"),
		debounce: DefaultDebounce,
	}
	if err := kp.Reload(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Reload reads the files again. The previous certificate stays in use on
// error.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	kp.cert.Store(&cert)
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return kp.cert.Load(), nil
}

// ServerConfig returns a server TLS config backed by the key pair.
func (kp *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Run reloads the key pair whenever either file changes, until ctx is done.
// The parent directories are watched so atomic renames are seen.
func (kp *KeyPair) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer w.Close()

	names := make(map[string]bool, 2)
	for _, f := range []string{kp.certFile, kp.keyFile} {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		names[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", filepath.Dir(abs), err)
		}
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !names[abs] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(kp.debounce)

		case <-timer.C:
			if err := kp.Reload(); err != nil {
				kp.logger.Error("certificate reload failed", "error", err, "cert_file", kp.certFile)
				continue
			}
			kp.logger.Info("certificate reloaded", "cert_file", kp.certFile)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			kp.logger.Error("certificate watcher error", "error", err)
		}
	}
}
