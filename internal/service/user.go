package service

import (
	"context"
	"fmt"

	"github.com/pkordes/placekeeper/internal/domain"
	"github.com/pkordes/placekeeper/internal/repo"
)

// UserService provisions accounts. Only the CLI calls it; sign-up happens
// outside this service.
type UserService struct {
	users repo.UserRepo
}

// NewUserService constructs a UserService backed by the provided UserRepo.
func NewUserService(users repo.UserRepo) *UserService {
	return &UserService{users: users}
}

// Create validates the email and role and inserts a user whose onboarding
// has not started.
func (s *UserService) Create(ctx context.Context, email, role string) (domain.User, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Create: %w", err)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Create: %w", err)
	}

	u, err := s.users.Create(ctx, normalized, r)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Create: %w", err)
	}
	return u, nil
}
