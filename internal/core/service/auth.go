package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/identity"
)

// Authenticator validates bearer tokens against a CredentialStore.
//
// Failures are classified in a fixed order: malformed input, unknown digest,
// revoked token or inactive owner, expired token. Revocation is reported
// ahead of expiry so that a revoked token never looks merely stale.
type Authenticator struct {
	store  CredentialStore
	format domain.TokenFormat
	logger *slog.Logger
	now    func() time.Time
}

// AuthenticatorConfig holds configuration for Authenticator.
type AuthenticatorConfig struct {
	// TokenPrefix is the token prefix without the trailing underscore
	// (default: ask_live).
	TokenPrefix string

	// Logger receives mark-used failures (default: slog.Default()).
	Logger *slog.Logger

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(store CredentialStore, cfg *AuthenticatorConfig) *Authenticator {
	if cfg == nil {
		cfg = &AuthenticatorConfig{}
	}
	a := &Authenticator{
		store:  store,
		format: domain.NewTokenFormat(cfg.TokenPrefix),
		logger: cfg.Logger,
		now:    cfg.Clock,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Format returns the token format accepted by the authenticator.
func (a *Authenticator) Format() domain.TokenFormat {
	return a.format
}

// Authenticate validates the value of an Authorization header and returns
// the caller's identity. Every failure is a *domain.DomainError.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (identity.Identity, error) {
	tok, err := ExtractBearer(header)
	if err != nil {
		return identity.Identity{}, err
	}
	if !a.format.Match(tok) {
		return identity.Identity{}, domain.ErrInvalidTokenFormat.WithDetails("malformed token")
	}

	record, err := a.store.LookupByDigest(ctx, domain.HashToken(tok))
	if err != nil {
		if domain.IsDomainError(err, domain.CodeTokenNotFound) {
			return identity.Identity{}, domain.ErrTokenNotFound
		}
		return identity.Identity{}, domain.ErrInternalServer.WithCause(err)
	}

	if !record.IsActive {
		return identity.Identity{}, domain.ErrTokenRevoked
	}

	owner, err := a.store.GetUser(ctx, record.UserID)
	if err != nil {
		if domain.IsDomainError(err, domain.CodeUserNotFound) {
			return identity.Identity{}, domain.ErrTokenRevoked.WithDetails("owner not found")
		}
		return identity.Identity{}, domain.ErrInternalServer.WithCause(err)
	}
	if !owner.IsActive {
		return identity.Identity{}, domain.ErrTokenRevoked.WithDetails("owner inactive")
	}

	now := a.now()
	if record.IsExpired(now) {
		return identity.Identity{}, domain.ErrTokenExpired
	}

	// Best effort: a failed update never rejects a valid token.
	if err := a.store.MarkUsed(ctx, record.ID, now); err != nil {
		a.logger.WarnContext(ctx, "failed to mark token used",
			"token_id", record.ID,
			"error", err,
		)
	}

	return identity.Identity{UserID: owner.ID, TokenID: record.ID}, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", domain.ErrInvalidTokenFormat.WithDetails("missing authorization header")
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", domain.ErrInvalidTokenFormat.WithDetails("expected 'Bearer <token>'")
	}
	return fields[1], nil
}
