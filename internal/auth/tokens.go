package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

// TokenStore keeps opaque bearer tokens in Redis, each mapped to a user id with a TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl, prefix: "token:"}
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue creates a new token for the user.
func (s *TokenStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store token: %w: %w", shared.ErrDependency, err)
	}
	return token, nil
}

// Resolve returns the user bound to token. Unknown or expired tokens yield shared.ErrUnauthorized.
func (s *TokenStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, shared.ErrUnauthorized
	}
	value, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, shared.ErrUnauthorized
		}
		return uuid.Nil, fmt.Errorf("resolve token: %w: %w", shared.ErrDependency, err)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, shared.ErrUnauthorized
	}
	return id, nil
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke token: %w: %w", shared.ErrDependency, err)
	}
	return nil
}

func (s *TokenStore) key(token string) string {
	return s.prefix + token
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
