package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfquery/internal/pkg/jwtutil"
)

const testJWTSecret = "test-secret"

func newTestAuthService(sessions *fakeSessionStore) (*AuthService, *fakeUserStore) {
	users := newFakeUserStore()
	return NewAuthService(users, sessions, testJWTSecret, time.Hour), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuthService(newFakeSessionStore())

	result, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEmpty(t, result.SessionID)

	claims, err := jwtutil.ParseToken(testJWTSecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, result.SessionID, claims.SessionID())

	login, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
	// every login gets its own session
	assert.NotEqual(t, result.SessionID, login.SessionID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(newFakeSessionStore())

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Username: "other", Email: "a@example.com", Password: "password456"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterInvalidInput(t *testing.T) {
	svc, _ := newTestAuthService(newFakeSessionStore())

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(RegisterInput{Username: "", Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(newFakeSessionStore())

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Email: "a@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := newFakeSessionStore()
	svc, _ := newTestAuthService(sessions)

	result, err := svc.Register(RegisterInput{Username: "alice", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sessions.ActivateIndex(ctx, result.SessionID, "index_1"))

	require.NoError(t, svc.Logout(ctx, result.SessionID))

	revoked, err := sessions.IsRevoked(ctx, result.SessionID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, ok, err := sessions.ActiveIndex(ctx, result.SessionID)
	require.NoError(t, err)
	assert.False(t, ok, "active index pointer should be cleared on logout")
}
