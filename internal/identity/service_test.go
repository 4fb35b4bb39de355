package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNormalizesEmailAndHashesPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{
		Email:    "  Alice@Example.COM ",
		Name:     "Alice",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, StatusActive, user.Status)
	assert.NotEmpty(t, user.ID)
	assert.NotContains(t, string(user.PasswordHash), "correct-horse")
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "not-an-email", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "short"})
	require.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Credentials{Email: "ALICE@example.com", Password: "battery-staple"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	registered, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFindActiveByEmailSkipsDisabledUsers(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	found, err := svc.FindActiveByEmail(ctx, "Alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.FindActiveByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}
