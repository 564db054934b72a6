// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/aegis/internal/platform/sec"
	"github.com/taibuivan/aegis/internal/users/auth"
)

type testFixture struct {
	service     *auth.Service
	users       *auth.MemoryUserRepository
	revocations *auth.MemoryRevocationStore
	tokens      *sec.TokenService
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	users := auth.NewMemoryUserRepository()
	revocations := auth.NewMemoryRevocationStore()

	tokens, err := sec.NewHMACTokenService([]byte("test-secret-0123456789"), "aegis-test", "", revocations)
	require.NoError(t, err)

	return &testFixture{
		service:     auth.NewService(users, revocations, tokens, time.Minute, time.Hour),
		users:       users,
		revocations: revocations,
		tokens:      tokens,
	}
}

// registerUser is a test helper enrolling an active account.
func registerUser(t *testing.T, fixture *testFixture, username, email, password string) *auth.User {
	t.Helper()
	user, err := fixture.service.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

/*
TestService_Register verifies enrollment and its identity conflicts.
*/
func TestService_Register(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	user := registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, auth.StatusActive, user.Status)
	assert.Nil(t, user.RoleID)
	// Stored hash must never equal the plain text password.
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err := fixture.service.Register(ctx, auth.RegisterInput{
		Username: "other", Email: "alice@example.com", Password: "correct-horse",
	})
	assert.Error(t, err)

	_, err = fixture.service.Register(ctx, auth.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "correct-horse",
	})
	assert.Error(t, err)
}

/*
TestService_Login verifies credential checks and that the issued pair carries
the right token types and subject.
*/
func TestService_Login(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	user := registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")

	// Login works with both username and email.
	session, err := fixture.service.Login(ctx, auth.LoginInput{Login: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = fixture.service.Login(ctx, auth.LoginInput{Login: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	// The access token verifies as Access and carries the user id.
	claims, err := fixture.tokens.Verify(ctx, session.AccessToken, sec.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	// The refresh token verifies as Refresh only.
	_, err = fixture.tokens.Verify(ctx, session.RefreshToken, sec.TokenRefresh)
	require.NoError(t, err)
	_, err = fixture.tokens.Verify(ctx, session.RefreshToken, sec.TokenAccess)
	assert.Error(t, err)

	// Wrong password and unknown identity both fail with the same message.
	_, err = fixture.service.Login(ctx, auth.LoginInput{Login: "alice", Password: "wrong"})
	assert.Error(t, err)
	_, err = fixture.service.Login(ctx, auth.LoginInput{Login: "nobody", Password: "correct-horse"})
	assert.Error(t, err)
}

/*
TestService_Login_InactiveAccount verifies that non-active lifecycle states
cannot authenticate.
*/
func TestService_Login_InactiveAccount(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	user := registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")
	require.NoError(t, fixture.users.UpdateStatus(ctx, user.ID, auth.StatusSuspended))

	_, err := fixture.service.Login(ctx, auth.LoginInput{Login: "alice", Password: "correct-horse"})
	assert.Error(t, err)
}

/*
TestService_Refresh verifies access renewal: only Refresh-typed tokens are
accepted, and the same refresh token keeps working until revoked.
*/
func TestService_Refresh(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	user := registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")
	session, err := fixture.service.Login(ctx, auth.LoginInput{Login: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	renewed, err := fixture.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)

	claims, err := fixture.tokens.Verify(ctx, renewed.AccessToken, sec.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	// Not single-use: a second refresh with the same token succeeds.
	_, err = fixture.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)

	// An access token is never accepted as a refresh token.
	_, err = fixture.service.Refresh(ctx, session.AccessToken)
	assert.Error(t, err)

	// A suspended subject cannot renew even with a live refresh token.
	require.NoError(t, fixture.users.UpdateStatus(ctx, user.ID, auth.StatusSuspended))
	_, err = fixture.service.Refresh(ctx, session.RefreshToken)
	assert.Error(t, err)
}

/*
TestService_Logout verifies revocation semantics: a revoked token fails every
subsequent verification even though its signature and expiry are intact, and
logout itself stays idempotent.
*/
func TestService_Logout(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")
	session, err := fixture.service.Login(ctx, auth.LoginInput{Login: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	// Alive before logout.
	_, err = fixture.tokens.Verify(ctx, session.AccessToken, sec.TokenAccess)
	require.NoError(t, err)

	require.NoError(t, fixture.service.Logout(ctx, session.AccessToken))

	// Dead after: same signature, same expiry, revoked jti.
	_, err = fixture.tokens.Verify(ctx, session.AccessToken, sec.TokenAccess)
	assert.ErrorIs(t, err, sec.ErrTokenRevoked)

	// Idempotent: logging out a revoked token succeeds again.
	require.NoError(t, fixture.service.Logout(ctx, session.AccessToken))

	// Revoking the refresh token kills the renewal path.
	require.NoError(t, fixture.service.Logout(ctx, session.RefreshToken))
	_, err = fixture.service.Refresh(ctx, session.RefreshToken)
	assert.Error(t, err)

	// Garbage is a successful no-op; it could never be replayed.
	require.NoError(t, fixture.service.Logout(ctx, "not-a-token"))
}

/*
TestService_PurgeExpiredRevocations verifies that cleanup only reclaims
entries whose token lifetime has passed.
*/
func TestService_PurgeExpiredRevocations(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.revocations.Revoke(ctx, "soon", time.Now().Add(20*time.Millisecond)))
	require.NoError(t, fixture.revocations.Revoke(ctx, "later", time.Now().Add(time.Hour)))

	time.Sleep(40 * time.Millisecond)

	removed, err := fixture.service.PurgeExpiredRevocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	revoked, err := fixture.revocations.IsRevoked(ctx, "later")
	require.NoError(t, err)
	assert.True(t, revoked)
}

/*
TestService_AssignRole verifies role attachment and detachment.
*/
func TestService_AssignRole(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()

	user := registerUser(t, fixture, "alice", "alice@example.com", "correct-horse")

	roleID := "role-1"
	updated, err := fixture.service.AssignRole(ctx, user.ID, &roleID)
	require.NoError(t, err)
	require.NotNil(t, updated.RoleID)
	assert.Equal(t, roleID, *updated.RoleID)

	updated, err = fixture.service.AssignRole(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.RoleID)

	_, err = fixture.service.AssignRole(ctx, "missing", &roleID)
	assert.Error(t, err)
}
