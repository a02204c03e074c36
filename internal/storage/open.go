package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/internal/storage/memory"
	"github.com/yndnr/skillgate-go/internal/storage/sqlstore"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// ErrNotBadger is returned by backup operations on other drivers.
var ErrNotBadger = errors.New("operation requires the badger store driver")

// OpenOptions selects and configures a credential store.
type OpenOptions struct {
	Driver string
	SQLite sqlstore.Config
	Badger KVConfig

	Logger *slog.Logger

	// Registerer receives engine metrics when set. Only the badger
	// driver exports any.
	Registerer prometheus.Registerer
}

// Handle is an open credential store.
type Handle struct {
	Driver     string
	Repository service.CredentialRepository

	count  func(context.Context) (int, int, error)
	close  func() error
	engine *BadgerEngine
}

// Open opens the store named by opts.Driver.
func Open(ctx context.Context, opts OpenOptions) (*Handle, error) {
	switch opts.Driver {
	case DriverMemory, "":
		s := memory.New()
		return &Handle{
			Driver:     DriverMemory,
			Repository: s,
			count: func(context.Context) (int, int, error) {
				u, t := s.Stats()
				return u, t, nil
			},
			close: func() error { return nil },
		}, nil

	case DriverSQLite:
		s, err := sqlstore.Open(ctx, opts.SQLite)
		if err != nil {
			return nil, err
		}
		return &Handle{Driver: DriverSQLite, Repository: s, count: s.Count, close: s.Close}, nil

	case DriverBadger:
		engine, err := NewBadgerEngine(opts.Badger, opts.Logger)
		if err != nil {
			return nil, err
		}
		if opts.Registerer != nil {
			engine.RegisterMetrics(opts.Registerer)
		}
		s := NewBadgerCredentialStore(engine)
		return &Handle{Driver: DriverBadger, Repository: s, count: s.Count, close: engine.Close, engine: engine}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// Count returns the number of stored users and tokens.
func (h *Handle) Count(ctx context.Context) (users, tokens int, err error) {
	return h.count(ctx)
}

// Badger returns the underlying engine, or ErrNotBadger.
func (h *Handle) Badger() (*BadgerEngine, error) {
	if h.engine == nil {
		return nil, ErrNotBadger
	}
	return h.engine, nil
}

// Close releases the store.
func (h *Handle) Close() error {
	return h.close()
}
