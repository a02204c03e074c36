package service

import (
	"context"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// TokenService issues, lists and revokes API tokens.
type TokenService struct {
	repo   CredentialRepository
	format domain.TokenFormat
}

// NewTokenService creates a new TokenService. An empty prefix selects
// domain.DefaultTokenPrefix.
func NewTokenService(repo CredentialRepository, prefix string) *TokenService {
	return &TokenService{
		repo:   repo,
		format: domain.NewTokenFormat(prefix),
	}
}

// IssuedToken is the result of Issue.
type IssuedToken struct {
	Token *domain.APIToken

	// Plaintext is returned exactly once and never persisted.
	Plaintext string
}

// Issue creates a token for an active user. A nil expiresAt issues a
// token that never expires.
func (s *TokenService) Issue(ctx context.Context, userID, name string, expiresAt *time.Time) (*IssuedToken, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInvalidArgument.WithDetails("user is inactive")
	}

	plaintext, digest, err := s.format.Generate()
	if err != nil {
		return nil, err
	}
	tok, err := domain.NewAPIToken(user.ID, name, digest, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateToken(ctx, tok); err != nil {
		return nil, err
	}

	return &IssuedToken{Token: tok, Plaintext: plaintext}, nil
}

// List returns the user's tokens.
func (s *TokenService) List(ctx context.Context, userID string) ([]*domain.APIToken, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListTokens(ctx, userID)
}

// Revoke deactivates a token owned by userID. Revoking an already revoked
// token succeeds. A token owned by another user is reported as not found.
func (s *TokenService) Revoke(ctx context.Context, userID, tokenID string) (*domain.APIToken, error) {
	tok, err := s.repo.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if tok.UserID != userID {
		return nil, domain.ErrTokenNotFound
	}
	if !tok.IsActive {
		return tok, nil
	}

	tok.IsActive = false
	if err := s.repo.UpdateToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}
