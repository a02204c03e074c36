package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
)

// Key prefixes.
var (
	prefixUser     = []byte("user/")
	prefixToken    = []byte("token/")
	prefixDigest   = []byte("digest/")
	prefixEmail    = []byte("email/")
	prefixUsername = []byte("username/")
	prefixOwner    = []byte("owner/")
)

func key(prefix []byte, parts ...string) []byte {
	k := append([]byte(nil), prefix...)
	return append(k, strings.Join(parts, "/")...)
}

// BadgerCredentialStore persists users and tokens in a KVEngine.
type BadgerCredentialStore struct {
	kv KVEngine

	// mu serializes writers that maintain secondary indexes. MarkUsed
	// touches a single record and skips it.
	mu sync.Mutex
}

var _ service.CredentialRepository = (*BadgerCredentialStore)(nil)

// NewBadgerCredentialStore creates a credential store over kv.
func NewBadgerCredentialStore(kv KVEngine) *BadgerCredentialStore {
	return &BadgerCredentialStore{kv: kv}
}

// Engine returns the underlying KV engine.
func (s *BadgerCredentialStore) Engine() KVEngine {
	return s.kv
}

// LookupByDigest retrieves a token by the digest of its plaintext.
func (s *BadgerCredentialStore) LookupByDigest(ctx context.Context, digest string) (*domain.APIToken, error) {
	var tok *domain.APIToken
	err := s.kv.View(ctx, func(tx KVTxn) error {
		id, err := tx.Get(key(prefixDigest, digest))
		if err != nil {
			return notFound(err, domain.ErrTokenNotFound)
		}
		tok, err = getToken(tx, string(id))
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return tok, nil
}

// GetUser retrieves a user by ID.
func (s *BadgerCredentialStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u *domain.User
	err := s.kv.View(ctx, func(tx KVTxn) error {
		var err error
		u, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return u, nil
}

// MarkUsed sets the token's last-used instant. It does not take mu; a
// concurrent write to the same token is resolved by the engine's conflict
// retry.
func (s *BadgerCredentialStore) MarkUsed(ctx context.Context, tokenID string, at time.Time) error {
	return storageError(s.kv.Update(ctx, func(tx KVTxn) error {
		tok, err := getToken(tx, tokenID)
		if err != nil {
			return err
		}
		tok.Touch(at)
		return putJSON(tx, key(prefixToken, tok.ID), tok)
	}))
}

// CreateUser stores a new user.
func (s *BadgerCredentialStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return storageError(s.kv.Update(ctx, func(tx KVTxn) error {
		for _, k := range [][]byte{
			key(prefixUser, user.ID),
			key(prefixEmail, strings.ToLower(user.Email)),
			key(prefixUsername, user.Username),
		} {
			exists, err := tx.Has(k)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrUserConflict
			}
		}
		if err := putJSON(tx, key(prefixUser, user.ID), user); err != nil {
			return err
		}
		if err := tx.Set(key(prefixEmail, strings.ToLower(user.Email)), []byte(user.ID)); err != nil {
			return err
		}
		return tx.Set(key(prefixUsername, user.Username), []byte(user.ID))
	}))
}

// UpdateUser replaces an existing user.
func (s *BadgerCredentialStore) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return storageError(s.kv.Update(ctx, func(tx KVTxn) error {
		old, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}

		oldEmail, newEmail := strings.ToLower(old.Email), strings.ToLower(user.Email)
		if newEmail != oldEmail {
			if taken, err := tx.Has(key(prefixEmail, newEmail)); err != nil || taken {
				return conflictOr(err)
			}
			if err := tx.Delete(key(prefixEmail, oldEmail)); err != nil {
				return err
			}
			if err := tx.Set(key(prefixEmail, newEmail), []byte(user.ID)); err != nil {
				return err
			}
		}
		if user.Username != old.Username {
			if taken, err := tx.Has(key(prefixUsername, user.Username)); err != nil || taken {
				return conflictOr(err)
			}
			if err := tx.Delete(key(prefixUsername, old.Username)); err != nil {
				return err
			}
			if err := tx.Set(key(prefixUsername, user.Username), []byte(user.ID)); err != nil {
				return err
			}
		}
		return putJSON(tx, key(prefixUser, user.ID), user)
	}))
}

// ListUsers returns all users ordered by creation time.
func (s *BadgerCredentialStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var (
		users   []*domain.User
		scanErr error
	)
	err := s.kv.Scan(ctx, prefixUser, func(_, value []byte) bool {
		var u domain.User
		if scanErr = json.Unmarshal(value, &u); scanErr != nil {
			return false
		}
		users = append(users, &u)
		return true
	})
	if err == nil {
		err = scanErr
	}
	if err != nil {
		return nil, storageError(err)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// CreateToken stores a new token.
func (s *BadgerCredentialStore) CreateToken(ctx context.Context, tok *domain.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return storageError(s.kv.Update(ctx, func(tx KVTxn) error {
		if exists, err := tx.Has(key(prefixUser, tok.UserID)); err != nil {
			return err
		} else if !exists {
			return domain.ErrUserNotFound
		}
		for _, k := range [][]byte{key(prefixToken, tok.ID), key(prefixDigest, tok.TokenHash)} {
			exists, err := tx.Has(k)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrStorage.WithDetails("token already exists")
			}
		}
		if err := putJSON(tx, key(prefixToken, tok.ID), tok); err != nil {
			return err
		}
		if err := tx.Set(key(prefixDigest, tok.TokenHash), []byte(tok.ID)); err != nil {
			return err
		}
		return tx.Set(key(prefixOwner, tok.UserID, tok.ID), nil)
	}))
}

// GetToken retrieves a token by ID.
func (s *BadgerCredentialStore) GetToken(ctx context.Context, tokenID string) (*domain.APIToken, error) {
	var tok *domain.APIToken
	err := s.kv.View(ctx, func(tx KVTxn) error {
		var err error
		tok, err = getToken(tx, tokenID)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return tok, nil
}

// UpdateToken replaces an existing token. The digest and owner are fixed
// at creation, and LastUsedAt is left to MarkUsed.
func (s *BadgerCredentialStore) UpdateToken(ctx context.Context, tok *domain.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return storageError(s.kv.Update(ctx, func(tx KVTxn) error {
		old, err := getToken(tx, tok.ID)
		if err != nil {
			return err
		}
		if old.TokenHash != tok.TokenHash || old.UserID != tok.UserID {
			return domain.ErrInvalidArgument.WithDetails("token digest and owner are immutable")
		}
		next := tok.Clone()
		next.LastUsedAt = old.LastUsedAt
		return putJSON(tx, key(prefixToken, tok.ID), next)
	}))
}

// ListTokens returns the user's tokens ordered by creation time.
func (s *BadgerCredentialStore) ListTokens(ctx context.Context, userID string) ([]*domain.APIToken, error) {
	prefix := key(prefixOwner, userID, "")
	var ids []string
	err := s.kv.Scan(ctx, prefix, func(k, _ []byte) bool {
		ids = append(ids, string(bytes.TrimPrefix(k, prefix)))
		return true
	})
	if err != nil {
		return nil, storageError(err)
	}

	tokens := make([]*domain.APIToken, 0, len(ids))
	err = s.kv.View(ctx, func(tx KVTxn) error {
		for _, id := range ids {
			tok, err := getToken(tx, id)
			if errors.Is(err, domain.ErrTokenNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tokens = append(tokens, tok)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
		}
		return tokens[i].ID < tokens[j].ID
	})
	return tokens, nil
}

func getUser(tx KVTxn, id string) (*domain.User, error) {
	var u domain.User
	if err := getJSON(tx, key(prefixUser, id), &u); err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &u, nil
}

func getToken(tx KVTxn, id string) (*domain.APIToken, error) {
	var tok domain.APIToken
	if err := getJSON(tx, key(prefixToken, id), &tok); err != nil {
		return nil, notFound(err, domain.ErrTokenNotFound)
	}
	return &tok, nil
}

func getJSON(tx KVTxn, k []byte, v any) error {
	data, err := tx.Get(k)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", k, err)
	}
	return nil
}

func putJSON(tx KVTxn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return tx.Set(k, data)
}

// notFound maps ErrKeyNotFound to the domain sentinel.
func notFound(err error, sentinel *domain.DomainError) error {
	if errors.Is(err, ErrKeyNotFound) {
		return sentinel
	}
	return err
}

func conflictOr(err error) error {
	if err != nil {
		return err
	}
	return domain.ErrUserConflict
}

// storageError passes domain errors through and wraps everything else as
// STORAGE_ERROR.
func storageError(err error) error {
	if err == nil || domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorage.WithCause(err)
}

// Count returns the number of stored users and tokens.
func (s *BadgerCredentialStore) Count(ctx context.Context) (users, tokens int, err error) {
	for _, c := range []struct {
		prefix []byte
		n      *int
	}{{prefixUser, &users}, {prefixToken, &tokens}} {
		err = s.kv.Scan(ctx, c.prefix, func(_, _ []byte) bool {
			*c.n++
			return true
		})
		if err != nil {
			return 0, 0, storageError(err)
		}
	}
	return users, tokens, nil
}
