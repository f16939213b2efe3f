package auth

import (
	"context"
	"testing"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() Service {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			JWTExpiresIn:     time.Minute,
			RefreshExpiresIn: time.Hour,
		},
	}
	return NewService(users.NewMemoryRepository(), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	reg, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, string(users.RoleUser), reg.User.Role)
	assert.NotEmpty(t, reg.AccessToken)

	claims, err := svc.ValidateToken(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, reg.User.ID, claims.UserID)

	login, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "bob", Password: "pass1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "bob", Password: "pass2"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "has space", Password: "pass1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	reg, err := svc.Register(ctx, &RegisterRequest{Username: "carol", Password: "secret1"})
	require.NoError(t, err)

	pair, err := svc.RefreshToken(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.RefreshToken(ctx, reg.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	reg, err := svc.Register(ctx, &RegisterRequest{Username: "dave", Password: "secret1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, reg.User.ID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, reg.User.ID, &ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))

	_, err = svc.Authenticate(ctx, "dave", "secret2")
	assert.NoError(t, err)
}
