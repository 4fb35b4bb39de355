package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service manages the identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeEmail canonicalizes an address for lookups.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates a new active user with a hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	email, err := NormalizeEmail(creds.Email)
	if err != nil {
		return User{}, err
	}
	if len(creds.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(creds.Name),
		PasswordHash: hash,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials for login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	email, err := NormalizeEmail(creds.Email)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	_ = s.repo.TouchLogin(ctx, user.ID, time.Now())
	return user, nil
}

// FindActiveByEmail resolves an email to an active user. Transfer recipient
// resolution goes through here.
func (s *Service) FindActiveByEmail(ctx context.Context, email string) (User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return User{}, err
	}
	if user.Status != StatusActive {
		return User{}, ErrNotFound
	}
	return user, nil
}
