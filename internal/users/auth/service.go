// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the core identity and session lifecycle system.

It handles credential verification, secure password hashing, and the full
token lifecycle: issuance of access/refresh pairs, refresh-driven renewal,
and revocation-list-backed logout.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Refresh, Logout).
  - Repository: Abstracted interfaces for Postgres (Users) and Redis (Revocations).
  - Security: Leverages Bcrypt hashing and HMAC/RSA-signed JWTs via [sec.TokenService].
*/
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/aegis/internal/platform/apperr"
	"github.com/taibuivan/aegis/internal/platform/sec"
	"github.com/taibuivan/aegis/pkg/uuid"
)

// # Definitions & Constructors

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or revocation logic must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	revocations    RevocationStore
	tokens         *sec.TokenService
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

// NewService constructs a new [Service]. Zero TTLs fall back to the package
// defaults.
func NewService(
	userRepo UserRepository,
	revocations RevocationStore,
	tokens *sec.TokenService,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Service{
		userRepository: userRepo,
		revocations:    revocations,
		tokens:         tokens,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: New accounts start active with no role attached; authorization
grants nothing until an administrator assigns one.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict error.
	_, err = service.userRepository.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Status:       StatusActive,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login    string // Can be Username or Email
	Password string
}

// LoginSession represents a successfully established token pair.
type LoginSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *User
}

/*
Login validates user credentials and issues a token pair.

Description: Verifies identity with a constant-time password comparison,
checks the account lifecycle state, and mints one access and one refresh
token, each carrying a fresh unique jti.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready token pair
  - error: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	var user *User
	var err error
	// Flexible login: look up by Email or Username
	user, err = service.userRepository.FindByEmail(context, input.Login)
	if err != nil {
		user, err = service.userRepository.FindByUsername(context, input.Login)
	}

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify password hash using bcrypt's constant-time comparison to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Only active accounts may authenticate.
	if user.Status != StatusActive {
		return nil, apperr.Unauthorized("Account is not active")
	}

	// Generate short-lived Access Token
	accessToken, err := service.tokens.Issue(user.ID, sec.TokenAccess, service.accessTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := service.tokens.Issue(user.ID, sec.TokenRefresh, service.refreshTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    service.accessTTL,
		User:         user,
	}, nil
}

// # Session Management

// RefreshedSession carries the newly minted access credentials.
type RefreshedSession struct {
	AccessToken string
	ExpiresIn   time.Duration
}

/*
Refresh issues a new access token from a valid refresh token.

Description: The refresh token is verified in full, including its revocation
state, and must carry the Refresh type. It is not consumed: until its own
expiry or an explicit logout it may mint further access tokens.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *RefreshedSession: New access credentials
  - error: Unauthorized or internal failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*RefreshedSession, error) {
	claims, err := service.tokens.Verify(context, refreshToken, sec.TokenRefresh)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// The subject must still resolve to an active account.
	user, err := service.userRepository.FindByID(context, claims.Subject)
	if err != nil || user.Status != StatusActive {
		return nil, apperr.Unauthorized("Account is not active")
	}

	accessToken, err := service.tokens.Issue(user.ID, sec.TokenAccess, service.accessTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return &RefreshedSession{
		AccessToken: accessToken,
		ExpiresIn:   service.accessTTL,
	}, nil
}

/*
Logout puts a token on the revocation list until its natural expiry.

Description: Idempotent. The token only needs to be authentic, not alive:
an already-revoked token revokes again harmlessly, and a malformed or
expired token is treated as a successful no-op since it can never be
replayed anyway.

Parameters:
  - context: context.Context
  - tokenString: string

Returns:
  - error: Revocation storage failures
*/
func (service *Service) Logout(context context.Context, tokenString string) error {

	// Decode checks signature and expiry but deliberately skips the
	// revocation lookup, keeping repeated logouts idempotent.
	claims, err := service.tokens.Decode(tokenString)
	if err != nil {
		return nil
	}

	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	if err := service.revocations.Revoke(context, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

/*
PurgeExpiredRevocations reclaims revocation entries for tokens that have
passed their natural expiry.

Parameters:
  - context: context.Context

Returns:
  - int: Number of entries removed
  - error: Storage failures
*/
func (service *Service) PurgeExpiredRevocations(context context.Context) (int, error) {
	removed, err := service.revocations.Cleanup(context, time.Now())
	if err != nil {
		return 0, fmt.Errorf("auth_service_revocation_cleanup_failed: %w", err)
	}
	return removed, nil
}

// # Profile & Role Attachment

/*
GetProfile returns the account behind an authenticated subject.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

/*
AssignRole attaches a user to a role, or detaches it when roleID is nil.

Description: The role reference is validated by the storage layer; a
dangling role id surfaces as apperr.NotFound.

Parameters:
  - context: context.Context
  - userID: string
  - roleID: *string

Returns:
  - *User: The user with its new role attachment
  - error: apperr.NotFound or persistence failures
*/
func (service *Service) AssignRole(context context.Context, userID string, roleID *string) (*User, error) {
	if err := service.userRepository.UpdateRole(context, userID, roleID); err != nil {
		return nil, err
	}
	return service.userRepository.FindByID(context, userID)
}
