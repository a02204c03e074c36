package config

import (
	"log/slog"

	"github.com/yndnr/skillgate-go/internal/storage"
	"github.com/yndnr/skillgate-go/internal/storage/sqlstore"
)

// OpenOptions converts the store section for storage.Open.
func (s StoreSection) OpenOptions(logger *slog.Logger) storage.OpenOptions {
	kv := storage.DefaultKVConfig(s.Badger.Dir)
	if s.Badger.GCInterval > 0 {
		kv.Badger.GCInterval = s.Badger.GCInterval
	}
	kv.Badger.SyncWrites = s.Badger.SyncWrites

	return storage.OpenOptions{
		Driver: s.Driver,
		SQLite: sqlstore.Config{
			Path:         s.SQLite.Path,
			MaxOpenConns: s.SQLite.MaxOpenConns,
			BusyTimeout:  s.SQLite.BusyTimeout,
		},
		Badger: kv,
		Logger: logger,
	}
}

// SetPath points the selected driver at path.
func (s *StoreSection) SetPath(path string) {
	switch s.Driver {
	case StoreBadger:
		s.Badger.Dir = path
	default:
		s.SQLite.Path = path
	}
}
