// Package service provides the server business logic for accounts, carts,
// wishlists and the catalog, delegating persistence to repository interfaces.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given login exists.
	// ctx carries deadlines, cancellation signals, and other request-scoped values.
	UserExists(ctx context.Context, login string) (bool, error)
	// RegisterUser creates a new user record with the given login.
	// Returns an error if the operation fails.
	RegisterUser(ctx context.Context, login string) error
	// CreateSession binds a bearer token to login.
	CreateSession(ctx context.Context, login, token string) error
	// UserForToken resolves a bearer token, returning "" if it is unknown.
	UserForToken(ctx context.Context, token string) (string, error)
}

// Service implements authentication operations by delegating
// to an AuthRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo AuthRepository
	// newToken issues bearer tokens.
	newToken func() string
}

// NewAuthService constructs a new Service using the provided repository.
// repo must implement AuthRepository.
func NewAuthService(repo AuthRepository) *Service {
	return &Service{repo: repo, newToken: uuid.NewString}
}

// UserExists checks whether a user with the specified login exists.
// It returns true if the user exists, false otherwise, along with any error.
func (s *Service) UserExists(ctx context.Context, login string) (bool, error) {
	return s.repo.UserExists(ctx, login)
}

// RegisterUser attempts to register a new user with the given login.
// Returns an error if the repository operation fails.
func (s *Service) RegisterUser(ctx context.Context, login string) error {
	return s.repo.RegisterUser(ctx, login)
}

// Register creates the user if needed and issues a fresh bearer token.
// Registering an existing login acts as a login.
func (s *Service) Register(ctx context.Context, login string) (string, error) {
	exists, err := s.repo.UserExists(ctx, login)
	if err != nil {
		return "", fmt.Errorf("check user: %w", err)
	}
	if !exists {
		if err := s.repo.RegisterUser(ctx, login); err != nil {
			return "", fmt.Errorf("register user: %w", err)
		}
	}
	token := s.newToken()
	if err := s.repo.CreateSession(ctx, login, token); err != nil {
		return "", err
	}
	return token, nil
}

// UserForToken resolves a bearer token to its login.
func (s *Service) UserForToken(ctx context.Context, token string) (string, error) {
	return s.repo.UserForToken(ctx, token)
}
