package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/warden-hq/warden/internal/shared"
)

const tokenKeyPrefix = "warden:token:"

// TokenStore issues and resolves opaque bearer tokens backed by Redis.
// Tokens expire via key TTL; revocation deletes the key.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token bound to the user id.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKeyPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: issue token: %w", err)
	}
	return token, nil
}

// Resolve returns the user id a token is bound to.
func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, shared.ErrTokenMissing
	}
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrTokenInvalid
		}
		return 0, fmt.Errorf("auth: resolve token: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrTokenInvalid
	}
	return id, nil
}

// Revoke invalidates a token immediately.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

// SweepOrphans scans every stored token and deletes those whose user id no
// longer passes the alive check. Tokens with unparseable values are removed
// too. Returns the number of tokens deleted.
func (s *TokenStore) SweepOrphans(ctx context.Context, alive func(ctx context.Context, userID int64) (bool, error)) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, tokenKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("auth: scan tokens: %w", err)
		}
		for _, key := range keys {
			raw, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("auth: read token %s: %w", key, err)
			}
			userID, parseErr := strconv.ParseInt(raw, 10, 64)
			keep := parseErr == nil
			if keep {
				keep, err = alive(ctx, userID)
				if err != nil {
					return removed, err
				}
			}
			if keep {
				continue
			}
			if err := s.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return removed, fmt.Errorf("auth: delete token %s: %w", key, err)
			}
			removed++
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
