// Package auth contains registration, login and session-token validation.
// Identity travels in the signed token, never in ambient client state.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/linkshop/catalogo/internal/lib/jwt"
	"github.com/linkshop/catalogo/internal/lib/password"
	"github.com/linkshop/catalogo/internal/models"
)

// ErrInvalidCredentials is returned on a wrong username or password without
// telling which one was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository is the persistence contract for accounts.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service handles registration, login and token validation.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New creates the auth service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register stores a new account with a hashed password and the default
// "user" role, returning the generated UID.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user",
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// Login verifies the password of the account behind email and issues a
// session token.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Username, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// ValidateToken parses and verifies a session token, returning the identity
// it carries.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
