package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID prefixes (public, use hyphen).
const (
	UserIDPrefix  = "usr-"
	TokenIDPrefix = "tok-"
)

// Field constraints.
const (
	MaxTokenNameLength = 128
	MaxUsernameLength  = 64
	MaxEmailLength     = 254
)

// User is the owner of API tokens.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUser creates an active user with a generated ID.
func NewUser(email, username string) (*User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || !strings.Contains(email, "@") || len(email) > MaxEmailLength {
		return nil, ErrInvalidArgument.WithDetails("invalid email")
	}
	if username == "" || len(username) > MaxUsernameLength {
		return nil, ErrInvalidArgument.WithDetails("invalid username")
	}

	id, err := newID(UserIDPrefix)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: timeNow().UTC(),
	}, nil
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// APIToken is a persisted bearer credential. Only the digest of the
// plaintext is stored.
type APIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"token_hash"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewAPIToken creates an active token record for the given owner and digest.
// A nil expiresAt means the token never expires.
func NewAPIToken(userID, name, digest string, expiresAt *time.Time) (*APIToken, error) {
	if userID == "" {
		return nil, ErrInvalidArgument.WithDetails("user id is required")
	}
	if len(name) > MaxTokenNameLength {
		return nil, ErrInvalidArgument.WithDetails("token name too long")
	}
	if len(digest) != 64 {
		return nil, ErrInvalidArgument.WithDetails("invalid token digest")
	}
	now := timeNow().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, ErrInvalidArgument.WithDetails("expiry must be in the future")
	}

	id, err := newID(TokenIDPrefix)
	if err != nil {
		return nil, err
	}
	t := &APIToken{
		ID:        id,
		UserID:    userID,
		Name:      name,
		TokenHash: digest,
		IsActive:  true,
		CreatedAt: now,
	}
	if expiresAt != nil {
		exp := expiresAt.UTC()
		t.ExpiresAt = &exp
	}
	return t, nil
}

// IsExpired reports whether the token has expired at now.
// A token whose expiry equals now is already expired.
func (t *APIToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// Touch records a use of the token.
func (t *APIToken) Touch(now time.Time) {
	ts := now.UTC()
	t.LastUsedAt = &ts
}

// Clone returns a deep copy of the token.
func (t *APIToken) Clone() *APIToken {
	if t == nil {
		return nil
	}
	c := *t
	if t.ExpiresAt != nil {
		exp := *t.ExpiresAt
		c.ExpiresAt = &exp
	}
	if t.LastUsedAt != nil {
		used := *t.LastUsedAt
		c.LastUsedAt = &used
	}
	return &c
}

func newID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// timeNow is a hook for testing.
var timeNow = time.Now
