// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/aegis/internal/platform/apperr"
)

// # Revocation Store (In-Memory)

// MemoryRevocationStore implements RevocationStore with a mutex-guarded map.
//
// Intended for tests and single-process development runs. Revocations do not
// survive a restart; production deployments use [RedisRevocationStore].
type MemoryRevocationStore struct {
	lock    sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryRevocationStore creates an empty in-memory RevocationStore.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time)}
}

// Revoke records the jti with the token's own expiry. Idempotent; entries
// for already-expired tokens are skipped.
func (store *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}

	store.lock.Lock()
	defer store.lock.Unlock()

	store.entries[jti] = expiresAt
	return nil
}

// IsRevoked reports whether the jti is on the list.
func (store *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	_, revoked := store.entries[jti]
	return revoked, nil
}

// Cleanup removes entries whose expiry is at or before now.
func (store *MemoryRevocationStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	store.lock.Lock()
	defer store.lock.Unlock()

	removed := 0
	for jti, expiresAt := range store.entries {
		if !expiresAt.After(now) {
			delete(store.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// # User Repository (In-Memory)

// MemoryUserRepository implements UserRepository with a mutex-guarded map.
// Intended for tests.
type MemoryUserRepository struct {
	lock  sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository creates an empty in-memory UserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

// Create persists a new account, enforcing username and email uniqueness.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.lock.Lock()
	defer repository.lock.Unlock()

	for _, existing := range repository.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.Conflict("Username or email is already registered")
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	repository.users[user.ID] = *user
	return nil
}

// FindByID returns the account with the given ID.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.lock.RLock()
	defer repository.lock.RUnlock()

	user, found := repository.users[id]
	if !found {
		return nil, apperr.NotFound("User not found")
	}
	return &user, nil
}

// FindByEmail returns the account with the given email.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.lock.RLock()
	defer repository.lock.RUnlock()

	for _, user := range repository.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

// FindByUsername returns the account with the given username.
func (repository *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	repository.lock.RLock()
	defer repository.lock.RUnlock()

	for _, user := range repository.users {
		if user.Username == username {
			found := user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User not found with this username")
}

// UpdatePassword replaces only the user's password hash.
func (repository *MemoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	repository.lock.Lock()
	defer repository.lock.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now()
	repository.users[userID] = user
	return nil
}

// UpdateRole attaches the user to a role. The in-memory store does not
// verify the role reference.
func (repository *MemoryUserRepository) UpdateRole(_ context.Context, userID string, roleID *string) error {
	repository.lock.Lock()
	defer repository.lock.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}
	user.RoleID = roleID
	user.UpdatedAt = time.Now()
	repository.users[userID] = user
	return nil
}

// UpdateStatus transitions the account lifecycle state.
func (repository *MemoryUserRepository) UpdateStatus(_ context.Context, userID string, status UserStatus) error {
	repository.lock.Lock()
	defer repository.lock.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	repository.users[userID] = user
	return nil
}
