package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session ID is unknown or expired.
var ErrNotFound = errors.New("session not found")

// User is the authenticated-user record attached to a browser session.
type User struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Store maps a browser session identifier to an authenticated-user record.
// Lifecycle is tied to login/logout; Touch pushes the server-side expiry out
// to at least ttl from now, so activity keeps a session alive without ever
// shortening a longer-lived one.
type Store interface {
	Create(ctx context.Context, user User, ttl time.Duration) (string, error)
	Get(ctx context.Context, sessionID string) (*User, error)
	Update(ctx context.Context, sessionID string, user User) error
	Destroy(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error
}

const keyPrefix = "session:"

// redisStore implements Store on top of Redis.
type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Create(ctx context.Context, user User, ttl time.Duration) (string, error) {
	sessionID := uuid.NewString()
	payload, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session payload: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+sessionID, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*User, error) {
	payload, err := s.rdb.Get(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	var user User
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &user, nil
}

// Update rewrites the user record of an existing session, keeping its TTL.
func (s *redisStore) Update(ctx context.Context, sessionID string, user User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, keyPrefix+sessionID, payload, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) Destroy(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to destroy session %s: %w", sessionID, err)
	}
	return nil
}

// Touch uses EXPIRE GT: a remember-me session with more time left than ttl
// keeps its later expiry.
func (s *redisStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.rdb.ExpireGT(ctx, keyPrefix+sessionID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session %s: %w", sessionID, err)
	}
	return nil
}
