package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/pkg/cmap"
)

// Store provides in-memory credential storage with multiple indexes.
type Store struct {
	// Primary indexes: ID -> record
	users  *cmap.Map[*domain.User]
	tokens *cmap.Map[*domain.APIToken]

	// Secondary indexes
	digests   *cmap.Map[string] // TokenHash -> token ID
	emails    *cmap.Map[string] // lower(Email) -> user ID
	usernames *cmap.Map[string] // Username -> user ID
	owners    *OwnerIndex

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

var _ service.CredentialRepository = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:     cmap.New[*domain.User](),
		tokens:    cmap.New[*domain.APIToken](),
		digests:   cmap.New[string](),
		emails:    cmap.New[string](),
		usernames: cmap.New[string](),
		owners:    NewOwnerIndex(),
	}
}

// LookupByDigest retrieves a token by the digest of its plaintext.
func (s *Store) LookupByDigest(_ context.Context, digest string) (*domain.APIToken, error) {
	id, ok := s.digests.Get(digest)
	if !ok {
		return nil, domain.ErrTokenNotFound
	}

	tok, ok := s.tokens.Get(id)
	if !ok {
		// Index inconsistency - clean up orphaned digest
		s.digests.Delete(digest)
		return nil, domain.ErrTokenNotFound
	}

	// Return a clone to prevent external modification
	return tok.Clone(), nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := s.users.Get(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

// MarkUsed sets the token's last-used instant.
func (s *Store) MarkUsed(_ context.Context, tokenID string, at time.Time) error {
	ok := s.tokens.UpdateIfPresent(tokenID, func(tok *domain.APIToken) *domain.APIToken {
		c := tok.Clone()
		c.Touch(at)
		return c
	})
	if !ok {
		return domain.ErrTokenNotFound
	}
	return nil
}

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if s.users.Has(user.ID) || s.emails.Has(email) || s.usernames.Has(user.Username) {
		return domain.ErrUserConflict
	}

	s.users.Set(user.ID, user.Clone())
	s.emails.Set(email, user.ID)
	s.usernames.Set(user.Username, user.ID)
	return nil
}

// UpdateUser replaces an existing user.
func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users.Get(user.ID)
	if !ok {
		return domain.ErrUserNotFound
	}

	oldEmail, newEmail := strings.ToLower(old.Email), strings.ToLower(user.Email)
	if newEmail != oldEmail && s.emails.Has(newEmail) {
		return domain.ErrUserConflict
	}
	if user.Username != old.Username && s.usernames.Has(user.Username) {
		return domain.ErrUserConflict
	}

	s.emails.Delete(oldEmail)
	s.usernames.Delete(old.Username)
	s.emails.Set(newEmail, user.ID)
	s.usernames.Set(user.Username, user.ID)
	s.users.Set(user.ID, user.Clone())
	return nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, s.users.Count())
	s.users.Range(func(_ string, u *domain.User) bool {
		users = append(users, u.Clone())
		return true
	})
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// CreateToken stores a new token.
func (s *Store) CreateToken(_ context.Context, tok *domain.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.users.Has(tok.UserID) {
		return domain.ErrUserNotFound
	}
	if s.tokens.Has(tok.ID) || s.digests.Has(tok.TokenHash) {
		return domain.ErrStorage.WithDetails("token already exists")
	}

	s.tokens.Set(tok.ID, tok.Clone())
	s.digests.Set(tok.TokenHash, tok.ID)
	s.owners.Add(tok.UserID, tok.ID)
	return nil
}

// GetToken retrieves a token by ID.
func (s *Store) GetToken(_ context.Context, tokenID string) (*domain.APIToken, error) {
	tok, ok := s.tokens.Get(tokenID)
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return tok.Clone(), nil
}

// UpdateToken replaces an existing token. The digest and owner are fixed
// at creation, and LastUsedAt is left to MarkUsed.
func (s *Store) UpdateToken(_ context.Context, tok *domain.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var immutable bool
	ok := s.tokens.UpdateIfPresent(tok.ID, func(old *domain.APIToken) *domain.APIToken {
		if old.TokenHash != tok.TokenHash || old.UserID != tok.UserID {
			immutable = true
			return old
		}
		c := tok.Clone()
		c.LastUsedAt = old.LastUsedAt
		return c
	})
	if !ok {
		return domain.ErrTokenNotFound
	}
	if immutable {
		return domain.ErrInvalidArgument.WithDetails("token digest and owner are immutable")
	}
	return nil
}

// ListTokens returns the user's tokens ordered by creation time.
func (s *Store) ListTokens(_ context.Context, userID string) ([]*domain.APIToken, error) {
	s.mu.RLock()
	ids := s.owners.Get(userID)
	s.mu.RUnlock()

	tokens := make([]*domain.APIToken, 0, len(ids))
	for _, id := range ids {
		if tok, ok := s.tokens.Get(id); ok {
			tokens = append(tokens, tok.Clone())
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
		}
		return tokens[i].ID < tokens[j].ID
	})
	return tokens, nil
}

// Stats returns the number of stored users and tokens.
func (s *Store) Stats() (users, tokens int) {
	return s.users.Count(), s.tokens.Count()
}
