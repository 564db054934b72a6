// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		UpdateRole attaches the user to a role, or detaches it when roleID is nil.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - roleID: *string

		Returns:
		  - error: apperr.NotFound when the role does not exist, or persistence failures
	*/
	UpdateRole(context context.Context, userID string, roleID *string) error

	/*
		UpdateStatus transitions the account lifecycle state.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - status: UserStatus

		Returns:
		  - error: Persistence failures
	*/
	UpdateStatus(context context.Context, userID string, status UserStatus) error
}

// # Revocation Data Access

// RevocationStore defines the contract for the token revocation list. It is
// the only shared mutable state of the token lifecycle: a Verify that starts
// after a Revoke completes must observe the revocation.
type RevocationStore interface {

	/*
		Revoke marks a token id as invalid until the token's own expiry.

		Description: Idempotent insert. Entries for already-expired tokens
		are a no-op since the token can never be replayed anyway.

		Parameters:
		  - context: context.Context
		  - jti: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, jti string, expiresAt time.Time) error

	/*
		IsRevoked reports whether the token id is on the revocation list.

		Parameters:
		  - context: context.Context
		  - jti: string

		Returns:
		  - bool: Revocation state
		  - error: Lookup failures; callers must fail closed on error
	*/
	IsRevoked(context context.Context, jti string) (bool, error)

	/*
		Cleanup removes entries whose expiry is in the past.

		Description: Only reclaims entries the token could never replay
		again, so a Cleanup racing a Revoke for a still-live token is safe.

		Parameters:
		  - context: context.Context
		  - now: time.Time

		Returns:
		  - int: Number of entries removed
		  - error: Persistence failures
	*/
	Cleanup(context context.Context, now time.Time) (int, error)
}
