package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// mockRepo implements CredentialRepository for testing.
type mockRepo struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	tokens map[string]*domain.APIToken

	lookups   atomic.Int64
	markUsed  atomic.Int64
	markErr   error
	lookupErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.APIToken),
	}
}

func (m *mockRepo) LookupByDigest(_ context.Context, digest string) (*domain.APIToken, error) {
	m.lookups.Add(1)
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tokens {
		if t.TokenHash == digest {
			return t.Clone(), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (m *mockRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *mockRepo) MarkUsed(_ context.Context, tokenID string, at time.Time) error {
	m.markUsed.Add(1)
	if m.markErr != nil {
		return m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok {
		return domain.ErrTokenNotFound
	}
	t.Touch(at)
	return nil
}

func (m *mockRepo) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == user.ID || u.Email == user.Email || u.Username == user.Username {
			return domain.ErrUserConflict
		}
	}
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *mockRepo) UpdateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *mockRepo) ListUsers(_ context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) CreateToken(_ context.Context, tok *domain.APIToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tok.ID]; ok {
		return errors.New("duplicate token id")
	}
	m.tokens[tok.ID] = tok.Clone()
	return nil
}

func (m *mockRepo) GetToken(_ context.Context, tokenID string) (*domain.APIToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[tokenID]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return t.Clone(), nil
}

func (m *mockRepo) UpdateToken(_ context.Context, tok *domain.APIToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tok.ID]; !ok {
		return domain.ErrTokenNotFound
	}
	m.tokens[tok.ID] = tok.Clone()
	return nil
}

func (m *mockRepo) ListTokens(_ context.Context, userID string) ([]*domain.APIToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.APIToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// addUser stores a user directly.
func (m *mockRepo) addUser(id string, active bool) *domain.User {
	u := &domain.User{ID: id, Email: id + "@example.com", Username: id, IsActive: active}
	m.mu.Lock()
	m.users[id] = u
	m.mu.Unlock()
	return u
}

// addToken stores a token for userID and returns its plaintext.
func (m *mockRepo) addToken(id, userID string, active bool, expiresAt *time.Time) string {
	plaintext, digest, err := domain.NewTokenFormat("").Generate()
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.tokens[id] = &domain.APIToken{
		ID:        id,
		UserID:    userID,
		TokenHash: digest,
		IsActive:  active,
		ExpiresAt: expiresAt,
	}
	m.mu.Unlock()
	return plaintext
}
