package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/skillgate-go/internal/storage/sqlstore"
	"github.com/yndnr/skillgate-go/internal/storage/storetest"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name       string
		opts       OpenOptions
		wantDriver string
		badger     bool
	}{
		{"default", OpenOptions{}, DriverMemory, false},
		{"memory", OpenOptions{Driver: DriverMemory}, DriverMemory, false},
		{"sqlite", OpenOptions{Driver: DriverSQLite, SQLite: sqlstore.Config{Path: filepath.Join(dir, "db.sqlite")}}, DriverSQLite, false},
		{"badger", OpenOptions{Driver: DriverBadger, Badger: DefaultKVConfig(filepath.Join(dir, "badger"))}, DriverBadger, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Open(ctx, tt.opts)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer h.Close()

			if h.Driver != tt.wantDriver {
				t.Errorf("Driver = %q, want %q", h.Driver, tt.wantDriver)
			}

			u := storetest.NewUser(t, h.Repository, "alice")
			storetest.NewToken(t, h.Repository, u.ID, nil)
			storetest.NewToken(t, h.Repository, u.ID, nil)

			users, tokens, err := h.Count(ctx)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if users != 1 || tokens != 2 {
				t.Errorf("Count() = (%d, %d), want (1, 2)", users, tokens)
			}

			_, err = h.Badger()
			if tt.badger && err != nil {
				t.Errorf("Badger() error = %v", err)
			}
			if !tt.badger && !errors.Is(err, ErrNotBadger) {
				t.Errorf("Badger() error = %v, want ErrNotBadger", err)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), OpenOptions{Driver: "postgres"}); err == nil {
		t.Error("Open() with unknown driver should fail")
	}
}

func TestOpen_BadgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := Open(context.Background(), OpenOptions{
		Driver:     DriverBadger,
		Badger:     DefaultKVConfig(t.TempDir()),
		Registerer: reg,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	n, err := testutil.GatherAndCount(reg, "skillgate_badger_gc_rewrites_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("gc_rewrites_total series = %d, want 1", n)
	}
}
