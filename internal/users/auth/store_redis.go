// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/aegis/internal/platform/constants"
)

// # Revocation Store (Redis)

// RedisRevocationStore implements RevocationStore using Redis.
//
// Each revoked jti becomes a key with a TTL equal to the token's remaining
// lifetime, so Redis reclaims entries on its own the moment the token could
// never be replayed again.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRevocationStore creates a new Redis-backed RevocationStore.
func NewRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

/*
Revoke marks a token id as invalid until the token's own expiry.

Description: Idempotent. Tokens that have already expired are skipped
entirely; there is nothing left to deny.

Parameters:
  - context: context.Context
  - jti: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (store *RedisRevocationStore) Revoke(context context.Context, jti string, expiresAt time.Time) error {

	// Remaining lifetime of the token; non-positive means already dead.
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := constants.RedisPrefixRevokedToken + jti

	if err := store.client.Set(context, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_revocation_set_failed: %w", err)
	}

	return nil
}

/*
IsRevoked reports whether the token id is on the revocation list.

Description: Lookup errors are surfaced so callers can fail closed instead
of silently accepting a token the list might have denied.

Parameters:
  - context: context.Context
  - jti: string

Returns:
  - bool: Revocation state
  - error: Connectivity errors
*/
func (store *RedisRevocationStore) IsRevoked(context context.Context, jti string) (bool, error) {
	key := constants.RedisPrefixRevokedToken + jti

	exists, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_lookup_failed: %w", err)
	}

	return exists > 0, nil
}

/*
Cleanup is a no-op for the Redis store.

Description: Entries carry their own TTL, so Redis expires them without any
sweeping. The method exists to satisfy the [RevocationStore] contract.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int: Always zero
  - error: Always nil
*/
func (store *RedisRevocationStore) Cleanup(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
