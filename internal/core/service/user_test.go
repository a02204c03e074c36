package service

import (
	"context"
	"testing"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

func TestUserService_Create(t *testing.T) {
	repo := newMockRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice@example.com", "alice")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !u.IsActive {
		t.Error("new user should be active")
	}

	got, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}

	if _, err := svc.Create(ctx, "alice@example.com", "other"); !domain.IsDomainError(err, domain.CodeUserConflict) {
		t.Errorf("duplicate Create() error = %v, want %s", err, domain.CodeUserConflict)
	}
	if _, err := svc.Create(ctx, "not-an-email", "bob"); !domain.IsDomainError(err, domain.CodeInvalidArgument) {
		t.Errorf("invalid Create() error = %v, want %s", err, domain.CodeInvalidArgument)
	}
}

func TestUserService_SetActive(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	svc := NewUserService(repo)
	auth := newTestAuthenticator(repo)
	ctx := context.Background()

	u, err := svc.SetActive(ctx, "usr-1", false)
	if err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if u.IsActive {
		t.Error("SetActive(false) should deactivate the user")
	}

	_, err = auth.Authenticate(ctx, "Bearer "+plaintext)
	if got := domain.GetErrorCode(err); got != domain.CodeTokenRevoked {
		t.Errorf("Authenticate() for disabled owner code = %q, want %q", got, domain.CodeTokenRevoked)
	}

	if _, err := svc.SetActive(ctx, "usr-1", true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	if _, err := auth.Authenticate(ctx, "Bearer "+plaintext); err != nil {
		t.Errorf("Authenticate() after re-enable error = %v", err)
	}

	if _, err := svc.SetActive(ctx, "usr-missing", true); !domain.IsDomainError(err, domain.CodeUserNotFound) {
		t.Errorf("SetActive() missing user error = %v, want %s", err, domain.CodeUserNotFound)
	}
}

func TestUserService_List(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	repo.addUser("usr-2", false)
	svc := NewUserService(repo)

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("List() len = %d, want 2", len(users))
	}
}
