// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRevocations is an in-test RevocationChecker with a controllable
// revoked set and failure mode.
type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func newHMACService(t *testing.T, revocations *fakeRevocations) *TokenService {
	t.Helper()
	if revocations == nil {
		revocations = &fakeRevocations{revoked: map[string]bool{}}
	}
	service, err := NewHMACTokenService([]byte("test-secret-at-least-32-bytes-long"), "aegis", "", revocations)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_IssueAndVerify checks the HS256 round trip: issue, then
verify and recover the full claim set.
*/
func TestTokenService_IssueAndVerify(t *testing.T) {
	service := newHMACService(t, nil)

	tokenString, err := service.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tokenString, "."), 3)

	claims, err := service.Verify(context.Background(), tokenString, TokenAccess)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "aegis", claims.Issuer)
	assert.Equal(t, TokenAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

/*
TestTokenService_ExtraClaims checks that caller-supplied claims survive the
round trip and that reserved keys cannot be shadowed.
*/
func TestTokenService_ExtraClaims(t *testing.T) {
	service := newHMACService(t, nil)

	tokenString, err := service.Issue("42", TokenAccess, time.Hour, map[string]any{
		"role": "editor",
		"sub":  "999", // reserved: must be ignored
	})
	require.NoError(t, err)

	claims, err := service.Verify(context.Background(), tokenString, TokenAccess)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "editor", claims.Extra["role"])
	assert.NotContains(t, claims.Extra, "sub")
}

/*
TestTokenService_TypeMismatch checks that access and refresh tokens are
never interchangeable.
*/
func TestTokenService_TypeMismatch(t *testing.T) {
	service := newHMACService(t, nil)

	accessToken, err := service.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)
	refreshToken, err := service.Issue("42", TokenRefresh, time.Hour, nil)
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), accessToken, TokenRefresh)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = service.Verify(context.Background(), refreshToken, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

/*
TestTokenService_Expired checks that a token past its exp claim is rejected.
*/
func TestTokenService_Expired(t *testing.T) {
	service := newHMACService(t, nil)

	tokenString, err := service.Issue("42", TokenAccess, -time.Minute, nil)
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), tokenString, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

/*
TestTokenService_Tampered checks that any modification to the payload
invalidates the signature.
*/
func TestTokenService_Tampered(t *testing.T) {
	service := newHMACService(t, nil)

	tokenString, err := service.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)

	segments := strings.Split(tokenString, ".")
	require.Len(t, segments, 3)
	// Flip a character inside the payload segment.
	payload := []byte(segments[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := segments[0] + "." + string(payload) + "." + segments[2]

	_, err = service.Verify(context.Background(), tampered, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

/*
TestTokenService_WrongKey checks that a token signed with one secret never
verifies under another.
*/
func TestTokenService_WrongKey(t *testing.T) {
	checker := &fakeRevocations{revoked: map[string]bool{}}
	issuerService, err := NewHMACTokenService([]byte("secret-one-aaaaaaaaaaaaaaaaaaaaaa"), "aegis", "", checker)
	require.NoError(t, err)
	verifierService, err := NewHMACTokenService([]byte("secret-two-bbbbbbbbbbbbbbbbbbbbbb"), "aegis", "", checker)
	require.NoError(t, err)

	tokenString, err := issuerService.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)

	_, err = verifierService.Verify(context.Background(), tokenString, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

/*
TestTokenService_Revoked checks that a revoked jti fails verification even
though the token is otherwise valid, and that a revocation store failure
also fails closed.
*/
func TestTokenService_Revoked(t *testing.T) {
	checker := &fakeRevocations{revoked: map[string]bool{}}
	service := newHMACService(t, checker)

	tokenString, err := service.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)

	claims, err := service.Verify(context.Background(), tokenString, TokenAccess)
	require.NoError(t, err)

	checker.revoked[claims.ID] = true
	_, err = service.Verify(context.Background(), tokenString, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	checker.err = errors.New("connection refused")
	_, err = service.Verify(context.Background(), tokenString, TokenAccess)
	assert.ErrorIs(t, err, ErrRevocationUnavailable)
}

/*
TestTokenService_UniqueJTI checks that every issuance carries a fresh token id.
*/
func TestTokenService_UniqueJTI(t *testing.T) {
	service := newHMACService(t, nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tokenString, err := service.Issue("42", TokenAccess, time.Hour, nil)
		require.NoError(t, err)

		claims, err := service.Verify(context.Background(), tokenString, TokenAccess)
		require.NoError(t, err)

		assert.False(t, seen[claims.ID], "duplicate jti %s", claims.ID)
		seen[claims.ID] = true
	}
}

/*
TestTokenService_Audience checks that a configured audience is both stamped
and enforced.
*/
func TestTokenService_Audience(t *testing.T) {
	checker := &fakeRevocations{revoked: map[string]bool{}}
	withAudience, err := NewHMACTokenService([]byte("test-secret-at-least-32-bytes-long"), "aegis", "aegis-api", checker)
	require.NoError(t, err)
	withoutAudience, err := NewHMACTokenService([]byte("test-secret-at-least-32-bytes-long"), "aegis", "", checker)
	require.NoError(t, err)

	tokenString, err := withAudience.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)

	claims, err := withAudience.Verify(context.Background(), tokenString, TokenAccess)
	require.NoError(t, err)
	assert.Contains(t, claims.Audience, "aegis-api")

	// A token issued without the audience must not pass the strict verifier.
	plainToken, err := withoutAudience.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)
	_, err = withAudience.Verify(context.Background(), plainToken, TokenAccess)
	assert.Error(t, err)
}

/*
TestTokenService_RSA checks the RS256 round trip with an ephemeral key pair
and rejection under a foreign public key.
*/
func TestTokenService_RSA(t *testing.T) {
	checker := &fakeRevocations{revoked: map[string]bool{}}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	service, err := newRSATokenService(key, &key.PublicKey, "aegis", "", checker)
	require.NoError(t, err)

	tokenString, err := service.Issue("42", TokenRefresh, time.Hour, nil)
	require.NoError(t, err)

	claims, err := service.Verify(context.Background(), tokenString, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenRefresh, claims.TokenType)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherService, err := newRSATokenService(otherKey, &otherKey.PublicKey, "aegis", "", checker)
	require.NoError(t, err)

	_, err = otherService.Verify(context.Background(), tokenString, TokenRefresh)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

/*
TestTokenService_Decode checks that Decode skips the revocation list while
still enforcing signature and expiry.
*/
func TestTokenService_Decode(t *testing.T) {
	checker := &fakeRevocations{revoked: map[string]bool{}}
	service := newHMACService(t, checker)

	tokenString, err := service.Issue("42", TokenAccess, time.Hour, nil)
	require.NoError(t, err)

	claims, err := service.Decode(tokenString)
	require.NoError(t, err)

	checker.revoked[claims.ID] = true
	decoded, err := service.Decode(tokenString)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, decoded.ID)

	expired, err := service.Issue("42", TokenAccess, -time.Minute, nil)
	require.NoError(t, err)
	_, err = service.Decode(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
