// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/aegis/internal/users/auth"
)

/*
TestMemoryRevocationStore covers the full entry lifecycle: insert, lookup,
idempotent re-insert, and expiry-bounded cleanup.
*/
func TestMemoryRevocationStore(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "stale", now.Add(time.Minute)))

	// Already-dead tokens are never recorded.
	require.NoError(t, store.Revoke(ctx, "dead", now.Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "dead")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Cleanup at a point between the two expiries removes only the stale entry.
	removed, err := store.Cleanup(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	revoked, err = store.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

/*
TestMemoryUserRepository covers account persistence, lookups, and the
targeted field updates the service relies on.
*/
func TestMemoryUserRepository(t *testing.T) {
	repository := auth.NewMemoryUserRepository()
	ctx := context.Background()

	user := &auth.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Status:       auth.StatusActive,
	}
	require.NoError(t, repository.Create(ctx, user))

	// Identity uniqueness.
	assert.Error(t, repository.Create(ctx, &auth.User{ID: "u-2", Username: "alice", Email: "other@example.com"}))
	assert.Error(t, repository.Create(ctx, &auth.User{ID: "u-3", Username: "other", Email: "alice@example.com"}))

	byID, err := repository.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byEmail, err := repository.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	byUsername, err := repository.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byUsername.ID)

	_, err = repository.FindByID(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, repository.UpdatePassword(ctx, "u-1", "new-hash"))
	require.NoError(t, repository.UpdateStatus(ctx, "u-1", auth.StatusInactive))

	roleID := "role-1"
	require.NoError(t, repository.UpdateRole(ctx, "u-1", &roleID))

	reloaded, err := repository.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)
	assert.Equal(t, auth.StatusInactive, reloaded.Status)
	require.NotNil(t, reloaded.RoleID)
	assert.Equal(t, roleID, *reloaded.RoleID)
}
