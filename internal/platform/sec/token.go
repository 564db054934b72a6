// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec provides cryptographic primitives and token management.

# Architecture

This package isolates security-sensitive code (Hashing, JWT Signing) from
the domain logic. It acts as an Infrastructure service injected into the
Application layer.

The token core implements the full session-token state machine:

	Issued → Valid → {Expired | Revoked} → Dead

No transition ever returns a token to Valid. Revocation is consulted on every
verification through the injected [RevocationChecker], so a revoke that has
completed is observed by any verify that starts afterwards.
*/
package sec

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// # Token Types

// TokenType is the closed set of values for the "typ" claim.
//
// Access and refresh tokens are never interchangeable: verification demands
// an exact match against the expected type, with no fall-through for unknown
// values.
type TokenType string

const (
	// TokenAccess authorizes API requests for its short lifetime.
	TokenAccess TokenType = "access"

	// TokenRefresh can only be exchanged for a new access token.
	TokenRefresh TokenType = "refresh"
)

// IsValid reports whether the value is one of the two known token types.
func (t TokenType) IsValid() bool {
	switch t {
	case TokenAccess, TokenRefresh:
		return true
	}
	return false
}

// # Verification Diagnostics

// Internal error taxonomy for token verification. These distinctions are for
// server-side logs and tests only: every caller-facing surface flattens them
// into a single 401 so no external signal distinguishes "expired" from
// "revoked" from "bad signature".
var (
	// ErrTokenMalformed covers format errors, unknown signing methods, and
	// signature mismatches. Verification fails closed on any of them.
	ErrTokenMalformed = errors.New("sec: token malformed or signature invalid")

	// ErrTokenExpired means the token's exp claim is in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenTypeMismatch means the typ claim does not exactly match the
	// expected token type.
	ErrTokenTypeMismatch = errors.New("sec: token type mismatch")

	// ErrTokenRevoked means the token's jti is on the revocation list.
	ErrTokenRevoked = errors.New("sec: token revoked")

	// ErrRevocationUnavailable means the revocation store could not be
	// queried. Verification fails closed.
	ErrRevocationUnavailable = errors.New("sec: revocation store unavailable")
)

// # Claims

// reservedClaims are the fixed claim keys owned by the issuer. Caller-supplied
// extra claims may never shadow them; in particular the jti must stay unique
// per issuance.
var reservedClaims = map[string]struct{}{
	"sub": {}, "iss": {}, "aud": {}, "iat": {}, "exp": {}, "nbf": {}, "jti": {}, "typ": {},
}

// Claims is the payload carried by every Aegis session token.
//
// The fixed keys are sub, iss, iat, exp, jti, typ plus an optional aud.
// Any additional top-level keys supplied at issuance are recovered into Extra
// on verification.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType discriminates access from refresh tokens.
	TokenType TokenType `json:"typ"`

	// Extra holds caller-supplied claims merged at the top level of the
	// payload. Nil when the token carries none.
	Extra map[string]any `json:"-"`
}

// UnmarshalJSON captures the registered claims and collects every remaining
// top-level key into Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range reservedClaims {
		delete(raw, key)
	}
	if len(raw) > 0 {
		known.Extra = raw
	}

	*c = Claims(known)
	return nil
}

// # Revocation Contract

// RevocationChecker is the read side of the revocation list consulted on
// every verification.
//
// # Why an interface?
//
// The token service must not care whether the list lives in Redis, memory,
// or a SQL table. Defining the consumer-side contract here keeps the
// dependency arrow pointing outward and makes the service trivial to test.
type RevocationChecker interface {
	// IsRevoked reports whether the given jti has been revoked.
	IsRevoked(context context.Context, jti string) (bool, error)
}

// # Token Service

// TokenService issues and verifies signed session tokens.
//
// It supports exactly two signing schemes, selected at construction:
// HMAC-SHA256 with a shared secret, or RSA-SHA256 with independent
// private (sign) and public (verify) keys.
type TokenService struct {
	method      jwt.SigningMethod
	signKey     any
	verifyKey   any
	issuer      string
	audience    string
	revocations RevocationChecker
}

// NewHMACTokenService creates a TokenService signing with a shared secret (HS256).
func NewHMACTokenService(secret []byte, issuer, audience string, revocations RevocationChecker) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("sec: HMAC secret must not be empty")
	}
	if revocations == nil {
		return nil, fmt.Errorf("sec: revocation checker is required")
	}

	return &TokenService{
		method:      jwt.SigningMethodHS256,
		signKey:     secret,
		verifyKey:   secret,
		issuer:      issuer,
		audience:    audience,
		revocations: revocations,
	}, nil
}

// NewRSATokenService creates a TokenService signing with an RSA key pair (RS256).
// It reads PEM-encoded keys from the provided filesystem paths.
func NewRSATokenService(privateKeyPath, publicKeyPath, issuer, audience string, revocations RevocationChecker) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return newRSATokenService(privateKey, publicKey, issuer, audience, revocations)
}

// newRSATokenService wires pre-parsed RSA keys. Split out for tests that
// generate ephemeral keys instead of reading PEM files.
func newRSATokenService(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer, audience string, revocations RevocationChecker) (*TokenService, error) {
	if revocations == nil {
		return nil, fmt.Errorf("sec: revocation checker is required")
	}

	return &TokenService{
		method:      jwt.SigningMethodRS256,
		signKey:     privateKey,
		verifyKey:   publicKey,
		issuer:      issuer,
		audience:    audience,
		revocations: revocations,
	}, nil
}

/*
Issue creates a signed token for the given subject.

Description: Builds the fixed claim set (sub, iss, iat, exp, fresh jti, typ,
optional aud), merges caller-supplied extra claims at the top level of the
payload, and signs with the configured key material. Extra claims can never
shadow the fixed keys.

Parameters:
  - subject: string (principal id)
  - tokenType: TokenType (access or refresh)
  - timeToLive: time.Duration
  - extra: map[string]any (optional, may be nil)

Returns:
  - string: Compact three-segment JWS (header.payload.signature, base64url)
  - error: Signing failures or an invalid token type
*/
func (service *TokenService) Issue(subject string, tokenType TokenType, timeToLive time.Duration, extra map[string]any) (string, error) {
	if !tokenType.IsValid() {
		return "", fmt.Errorf("sec: unknown token type %q", tokenType)
	}

	currentTime := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": service.issuer,
		"iat": jwt.NewNumericDate(currentTime),
		"exp": jwt.NewNumericDate(currentTime.Add(timeToLive)),
		"jti": newJTI(),
		"typ": string(tokenType),
	}
	if service.audience != "" {
		claims["aud"] = service.audience
	}

	// Merge extras last; reserved keys always win.
	for key, value := range extra {
		if _, reserved := reservedClaims[key]; reserved {
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(service.method, claims)
	signedToken, err := token.SignedString(service.signKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

/*
Verify checks a token string and returns its claims.

Description: Performs, strictly in order: (1) parse + signature check with the
signing method pinned, failing closed on any malformation; (2) time-bound
checks (exp/iat/nbf); (3) issuer and, when configured, audience checks;
(4) exact typ match against expectedType; (5) revocation lookup by jti.
A revoked jti fails regardless of how valid the rest of the token is.

Parameters:
  - context: context.Context (bounds the revocation lookup)
  - tokenString: string
  - expectedType: TokenType

Returns:
  - *Claims: Verified claims, including any extra payload keys
  - error: One of the diagnostic sentinels above
*/
func (service *TokenService) Verify(context context.Context, tokenString string, expectedType TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{service.method.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
	}
	if service.audience != "" {
		options = append(options, jwt.WithAudience(service.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return service.verifyKey, nil
	}, options...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	// A token without a jti cannot participate in revocation and is rejected.
	if claims.ID == "" {
		return nil, ErrTokenMalformed
	}

	// Exact type match; unknown types never fall through.
	if !claims.TokenType.IsValid() || claims.TokenType != expectedType {
		return nil, ErrTokenTypeMismatch
	}

	revoked, err := service.revocations.IsRevoked(context, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Decode extracts claims from a token without consulting the revocation list.
//
// The signature and time bounds are still enforced; this exists for flows that
// need the jti and expiry of a token that may already be revoked, such as an
// idempotent logout.
func (service *TokenService) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return service.verifyKey, nil
	}, jwt.WithValidMethods([]string{service.method.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// newJTI generates a fresh 128-bit unique token id.
func newJTI() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to v4; entropy failure on v7 is effectively unreachable.
		return uuid.New().String()
	}
	return id.String()
}
