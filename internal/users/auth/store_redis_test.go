// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/aegis/internal/users/auth"
)

func newRedisStore(t *testing.T) (*auth.RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return auth.NewRevocationStore(client), mr
}

/*
TestRedisRevocationStore_Revoke verifies the TTL-bounded revocation entry.
*/
func TestRedisRevocationStore_Revoke(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Unknown jti is simply not revoked.
	revoked, err = store.IsRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	// The entry disappears on its own once the token would have expired.
	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestRedisRevocationStore_ExpiredToken verifies that revoking an already-dead
token is a no-op and leaves no entry behind.
*/
func TestRedisRevocationStore_ExpiredToken(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-dead", time.Now().Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-dead")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestRedisRevocationStore_Idempotent verifies that re-revoking extends nothing
and fails nothing.
*/
func TestRedisRevocationStore_Idempotent(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, store.Revoke(ctx, "jti-1", expiresAt))
	require.NoError(t, store.Revoke(ctx, "jti-1", expiresAt))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

/*
TestRedisRevocationStore_Cleanup verifies the contract no-op: Redis expiry
does the sweeping.
*/
func TestRedisRevocationStore_Cleanup(t *testing.T) {
	store, _ := newRedisStore(t)

	removed, err := store.Cleanup(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

/*
TestRedisRevocationStore_Unavailable verifies that lookups against a dead
backend surface an error instead of silently passing tokens.
*/
func TestRedisRevocationStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.IsRevoked(context.Background(), "jti-1")
	assert.Error(t, err)
}
