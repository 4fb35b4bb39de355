package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rupeeflow/rupeeflow/internal/config"
	"github.com/rupeeflow/rupeeflow/internal/identity"
)

// ErrInvalidToken indicates a token that failed signature, expiry, or
// version checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by both access and refresh tokens.
type Claims struct {
	Email        string `json:"email,omitempty"`
	TokenVersion int    `json:"ver"`
	jwt.RegisteredClaims
}

// Service issues and verifies token pairs. Logout bumps the user's token
// version, invalidating every token issued before it.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService constructs an auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues a token pair for an already-authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify parses a token against the given secret and checks the embedded
// token version against the user's current one.
func (s *Service) Verify(ctx context.Context, tokenStr, secret string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil || user.TokenVersion != claims.TokenVersion {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess checks an access token.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (Claims, error) {
	return s.Verify(ctx, tokenStr, s.cfg.JWTSecret)
}

// Refresh verifies a refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.Verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	access, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments the token version so outstanding tokens stop verifying.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
