package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/internal/storage/storetest"
)

func TestBadgerCredentialStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.CredentialRepository {
		return NewBadgerCredentialStore(newTestEngine(t))
	})
}

func TestBadgerCredentialStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultKVConfig(dir)
	ctx := context.Background()

	engine, err := NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	store := NewBadgerCredentialStore(engine)
	u := storetest.NewUser(t, store, "alice")
	_, plaintext := storetest.NewToken(t, store, u.ID, nil)
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	engine, err = NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()
	store = NewBadgerCredentialStore(engine)

	tok, err := store.LookupByDigest(ctx, domain.HashToken(plaintext))
	if err != nil {
		t.Fatalf("LookupByDigest() after reopen error = %v", err)
	}
	if tok.UserID != u.ID {
		t.Errorf("UserID = %q, want %q", tok.UserID, u.ID)
	}
}

func TestBadgerCredentialStore_ClosedEngine(t *testing.T) {
	engine := newTestEngine(t)
	store := NewBadgerCredentialStore(engine)
	_ = engine.Close()

	_, err := store.LookupByDigest(context.Background(), domain.HashToken("x"))
	if !domain.IsDomainError(err, domain.CodeStorage) {
		t.Errorf("LookupByDigest() error = %v, want STORAGE_ERROR", err)
	}
	if !errors.Is(err, ErrClosed) {
		t.Errorf("LookupByDigest() error = %v, want cause ErrClosed", err)
	}
}
