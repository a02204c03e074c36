package service

import (
	"context"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// UserService manages token owners.
type UserService struct {
	repo CredentialRepository
}

// NewUserService creates a new UserService.
func NewUserService(repo CredentialRepository) *UserService {
	return &UserService{repo: repo}
}

// Create registers a new active user.
func (s *UserService) Create(ctx context.Context, email, username string) (*domain.User, error) {
	user, err := domain.NewUser(email, username)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// SetActive enables or disables a user. Disabling a user rejects all of
// their tokens without touching the token records.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) (*domain.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}
