package service

import (
	"context"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// CredentialStore resolves token digests for the request path.
//
// Implementations return domain.ErrTokenNotFound and domain.ErrUserNotFound
// for missing records. Returned records are copies owned by the caller.
type CredentialStore interface {
	// LookupByDigest returns the token whose digest matches.
	LookupByDigest(ctx context.Context, digest string) (*domain.APIToken, error)

	// GetUser returns the user with the given ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// MarkUsed sets the token's last-used instant.
	MarkUsed(ctx context.Context, tokenID string, at time.Time) error
}

// CredentialRepository is the full storage interface used by the admin services.
type CredentialRepository interface {
	CredentialStore

	// CreateUser stores a new user. Duplicate ID, email or username
	// yields domain.ErrUserConflict.
	CreateUser(ctx context.Context, user *domain.User) error

	// UpdateUser replaces an existing user.
	UpdateUser(ctx context.Context, user *domain.User) error

	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// CreateToken stores a new token.
	CreateToken(ctx context.Context, token *domain.APIToken) error

	// GetToken returns the token with the given ID.
	GetToken(ctx context.Context, tokenID string) (*domain.APIToken, error)

	// UpdateToken replaces an existing token. It never changes LastUsedAt,
	// which only MarkUsed writes.
	UpdateToken(ctx context.Context, token *domain.APIToken) error

	// ListTokens returns the user's tokens ordered by creation time.
	ListTokens(ctx context.Context, userID string) ([]*domain.APIToken, error)
}
