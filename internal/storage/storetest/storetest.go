// Package storetest provides a conformance suite for credential stores.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) service.CredentialRepository

// Run exercises every CredentialRepository operation against stores built
// by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("UserCRUD", func(t *testing.T) { testUserCRUD(t, newRepo(t)) })
	t.Run("UserConflict", func(t *testing.T) { testUserConflict(t, newRepo(t)) })
	t.Run("TokenLookup", func(t *testing.T) { testTokenLookup(t, newRepo(t)) })
	t.Run("TokenUpdate", func(t *testing.T) { testTokenUpdate(t, newRepo(t)) })
	t.Run("ListTokens", func(t *testing.T) { testListTokens(t, newRepo(t)) })
	t.Run("MarkUsed", func(t *testing.T) { testMarkUsed(t, newRepo(t)) })
	t.Run("UpdateKeepsLastUsed", func(t *testing.T) { testUpdateKeepsLastUsed(t, newRepo(t)) })
	t.Run("ConcurrentUseAndRevoke", func(t *testing.T) { testConcurrentUseAndRevoke(t, newRepo(t)) })
	t.Run("ClonesAreIndependent", func(t *testing.T) { testClones(t, newRepo(t)) })
}

// NewUser creates and stores a user with unique email and username.
func NewUser(t *testing.T, repo service.CredentialRepository, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name+"@example.com", name)
	if err != nil {
		t.Fatalf("NewUser(%q) error = %v", name, err)
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return u
}

// NewToken creates and stores a token for userID and returns it with its
// plaintext.
func NewToken(t *testing.T, repo service.CredentialRepository, userID string, expiresAt *time.Time) (*domain.APIToken, string) {
	t.Helper()
	plaintext, digest, err := domain.NewTokenFormat("").Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	tok, err := domain.NewAPIToken(userID, "test", digest, expiresAt)
	if err != nil {
		t.Fatalf("NewAPIToken() error = %v", err)
	}
	if err := repo.CreateToken(context.Background(), tok); err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}
	return tok, plaintext
}

func testUserCRUD(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	bob := NewUser(t, repo, "bob")

	got, err := repo.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != alice.Email || got.Username != alice.Username || !got.IsActive {
		t.Errorf("GetUser() = %+v, want %+v", got, alice)
	}
	if !got.CreatedAt.Equal(alice.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, alice.CreatedAt)
	}

	if _, err := repo.GetUser(ctx, "usr-missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrUserNotFound", err)
	}

	got.IsActive = false
	if err := repo.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	again, err := repo.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if again.IsActive {
		t.Error("IsActive = true after deactivation, want false")
	}

	missing := *alice
	missing.ID = "usr-missing"
	if err := repo.UpdateUser(ctx, &missing); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("UpdateUser(missing) error = %v, want ErrUserNotFound", err)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != alice.ID || users[1].ID != bob.ID {
		t.Errorf("ListUsers() = %v, want [alice bob]", userIDs(users))
	}
}

func testUserConflict(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")

	sameEmail, _ := domain.NewUser("ALICE@example.com", "other")
	if err := repo.CreateUser(ctx, sameEmail); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("CreateUser(same email) error = %v, want ErrUserConflict", err)
	}
	sameName, _ := domain.NewUser("other@example.com", "alice")
	if err := repo.CreateUser(ctx, sameName); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("CreateUser(same username) error = %v, want ErrUserConflict", err)
	}
	sameID := alice.Clone()
	sameID.Email, sameID.Username = "third@example.com", "third"
	if err := repo.CreateUser(ctx, sameID); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("CreateUser(same id) error = %v, want ErrUserConflict", err)
	}

	bob := NewUser(t, repo, "bob")
	bob.Username = "alice"
	if err := repo.UpdateUser(ctx, bob); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("UpdateUser(taken username) error = %v, want ErrUserConflict", err)
	}
}

func testTokenLookup(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	tok, plaintext := NewToken(t, repo, alice.ID, &exp)

	got, err := repo.LookupByDigest(ctx, domain.HashToken(plaintext))
	if err != nil {
		t.Fatalf("LookupByDigest() error = %v", err)
	}
	if got.ID != tok.ID || got.UserID != alice.ID || !got.IsActive {
		t.Errorf("LookupByDigest() = %+v, want %+v", got, tok)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, exp)
	}
	if got.LastUsedAt != nil {
		t.Errorf("LastUsedAt = %v, want nil", got.LastUsedAt)
	}

	if _, err := repo.LookupByDigest(ctx, domain.HashToken("ask_live_unknown")); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("LookupByDigest(unknown) error = %v, want ErrTokenNotFound", err)
	}
	if _, err := repo.GetToken(ctx, "tok-missing"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("GetToken(missing) error = %v, want ErrTokenNotFound", err)
	}

	byID, err := repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if byID.TokenHash != tok.TokenHash {
		t.Errorf("TokenHash = %q, want %q", byID.TokenHash, tok.TokenHash)
	}

	orphan, err := domain.NewAPIToken("usr-missing", "x", domain.HashToken("orphan"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateToken(ctx, orphan); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("CreateToken(unknown owner) error = %v, want ErrUserNotFound", err)
	}
}

func testTokenUpdate(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	tok, plaintext := NewToken(t, repo, alice.ID, nil)

	tok.IsActive = false
	if err := repo.UpdateToken(ctx, tok); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	got, err := repo.LookupByDigest(ctx, domain.HashToken(plaintext))
	if err != nil {
		t.Fatalf("LookupByDigest() error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true after revoke, want false")
	}

	missing := tok.Clone()
	missing.ID = "tok-missing"
	if err := repo.UpdateToken(ctx, missing); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("UpdateToken(missing) error = %v, want ErrTokenNotFound", err)
	}
}

func testListTokens(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	bob := NewUser(t, repo, "bob")

	var want []string
	for i := 0; i < 3; i++ {
		tok, _ := NewToken(t, repo, alice.ID, nil)
		want = append(want, tok.ID)
	}
	NewToken(t, repo, bob.ID, nil)

	got, err := repo.ListTokens(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTokens() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ListTokens() returned %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("ListTokens()[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}

	none, err := repo.ListTokens(ctx, "usr-missing")
	if err != nil {
		t.Fatalf("ListTokens(missing) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListTokens(missing) = %d tokens, want 0", len(none))
	}
}

func testMarkUsed(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	tok, _ := NewToken(t, repo, alice.ID, nil)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := repo.MarkUsed(ctx, tok.ID, at); err != nil {
		t.Fatalf("MarkUsed() error = %v", err)
	}
	got, err := repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(at) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, at)
	}

	if err := repo.MarkUsed(ctx, "tok-missing", at); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("MarkUsed(missing) error = %v, want ErrTokenNotFound", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.MarkUsed(ctx, tok.ID, at.Add(time.Duration(i)*time.Second)); err != nil {
				errs <- fmt.Errorf("MarkUsed(%d): %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	got, err = repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt = nil after concurrent MarkUsed")
	}
}

func testUpdateKeepsLastUsed(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	tok, _ := NewToken(t, repo, alice.ID, nil)

	// tok was read before the token was used.
	stale := tok.Clone()
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := repo.MarkUsed(ctx, tok.ID, at); err != nil {
		t.Fatalf("MarkUsed() error = %v", err)
	}

	stale.IsActive = false
	if err := repo.UpdateToken(ctx, stale); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	got, err := repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true, want false")
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(at) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, at)
	}

	moved := got.Clone()
	moved.UserID = "usr-other"
	if err := repo.UpdateToken(ctx, moved); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("UpdateToken(new owner) error = %v, want ErrInvalidArgument", err)
	}
}

func testConcurrentUseAndRevoke(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	tok, _ := NewToken(t, repo, alice.ID, nil)
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 17)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.MarkUsed(ctx, tok.ID, at); err != nil {
				errs <- fmt.Errorf("MarkUsed: %w", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		revoked := tok.Clone()
		revoked.IsActive = false
		if err := repo.UpdateToken(ctx, revoked); err != nil {
			errs <- fmt.Errorf("UpdateToken: %w", err)
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	got, err := repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true after revoke, want false")
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(at) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, at)
	}
}

func testClones(t *testing.T, repo service.CredentialRepository) {
	ctx := context.Background()
	alice := NewUser(t, repo, "alice")
	tok, _ := NewToken(t, repo, alice.ID, nil)

	alice.Username = "mutated"
	tok.IsActive = false

	u, err := repo.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q, want %q", u.Username, "alice")
	}
	got, err := repo.GetToken(ctx, tok.ID)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if !got.IsActive {
		t.Error("stored token changed through caller's copy")
	}
}

func userIDs(users []*domain.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
